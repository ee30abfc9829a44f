package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	shttp "svmpredict/http"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction page, JSON API and websocket sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()
			if port > 0 {
				a.cfg.Http.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override http.port")
	return cmd
}

// runServe serves until ctx is cancelled, then shuts down the server and
// the model watcher.
func runServe(ctx context.Context, a *app) error {
	server := shttp.NewServer(shttp.ServerConfigFrom(a.cfg), a.wf, a.metrics, a.logger.Named("http"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Stop(stopCtx)
	})
	if a.cfg.Models.Watch && a.cfg.Models.CacheSize > 0 {
		dirs := modelDirs(a)
		g.Go(func() error {
			if err := a.store.Watch(ctx, dirs...); err != nil {
				a.logger.Warn("model watcher disabled", zap.Error(err))
			}
			return nil
		})
	}

	err := g.Wait()
	a.logger.Info("exiting")
	return err
}

func modelDirs(a *app) []string {
	var dirs []string
	for _, name := range a.wf.ListDatasetNames() {
		p, err := a.wf.GetProfile(name)
		if err != nil {
			continue
		}
		dirs = append(dirs, filepath.Dir(p.ModelPath))
	}
	return dirs
}
