package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"svmpredict/config"
	"svmpredict/dataset"
	"svmpredict/logging"
	"svmpredict/ml"
	"svmpredict/monitoring"
	"svmpredict/workflow"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "svmpredict",
		Short: "SVM prediction demo for fish, fruit and pumpkin seed datasets",
		Long: "svmpredict loads a pre-trained classifier per dataset, pre-fills the\n" +
			"inputs from the first sample row and resolves the predicted class label.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "config file; ../config.yaml and built-in defaults are the fallbacks")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newDatasetsCmd(opts))
	cmd.AddCommand(newPredictCmd(opts))
	return cmd
}

// app holds the components every command shares.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *ml.Store
	metrics *monitoring.Metrics
	wf      *workflow.Workflow
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, source, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("config loaded", zap.String("source", source), zap.Int("datasets", len(cfg.Datasets)))

	registry, err := workflow.RegistryFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := ml.NewStore(cfg.Models.CacheSize, logger.Named("ml"))
	if err != nil {
		return nil, err
	}
	metrics := monitoring.NewMetrics()
	samples := dataset.Loader{Encoding: cfg.Data.Encoding}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: metrics,
		wf:      workflow.New(registry, store, samples, metrics, logger.Named("workflow")),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// loadConfig falls back to the built-in defaults when no file is found.
// Relative directories in a file are taken relative to that file.
func loadConfig(path string) (*config.Config, string, error) {
	resolved := config.Resolve(path)
	if resolved == "" {
		return config.Default(), "defaults", nil
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	cfg.Rebase(filepath.Dir(resolved))
	return cfg, resolved, nil
}
