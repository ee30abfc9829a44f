package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"svmpredict/workflow"
)

type predictOptions struct {
	dataset string
	sets    []string
	verbose bool
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	opts := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run one prediction, starting from the first sample row",
		Example: `  svmpredict predict --dataset "Fish Dataset"
  svmpredict predict --dataset "Fruit Dataset" --set diameter=9.2 --set weight=150`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()
			return runPredict(cmd.Context(), a.wf, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.dataset, "dataset", "d", "", "dataset name (default: the first configured)")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "feature override as name=value, repeatable")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print notices and the feature vector")
	return cmd
}

func runPredict(ctx context.Context, wf *workflow.Workflow, opts *predictOptions, out io.Writer) error {
	name := opts.dataset
	if name == "" {
		name = wf.Registry().First().Name
	}
	overrides, err := parseSets(opts.sets)
	if err != nil {
		return err
	}

	session := wf.NewSession()
	if err := session.Select(name); err != nil {
		return err
	}
	if opts.verbose {
		printNotices(out, session.View().Notices)
	}
	if session.State() == workflow.StateModelLoadFailed {
		return errors.New(session.View().Notices[0].Message)
	}
	if err := session.SetInputs(overrides); err != nil {
		return err
	}
	if opts.verbose {
		for _, f := range session.Vector().Features() {
			fmt.Fprintf(out, "  %s = %v\n", f.Name, f.Value)
		}
	}

	result, err := session.Predict(ctx)
	if err != nil {
		if notices := session.View().Notices; len(notices) > 0 && notices[len(notices)-1].Level == workflow.LevelError {
			return errors.New(notices[len(notices)-1].Message)
		}
		return err
	}
	fmt.Fprintf(out, "Prediction for %s: %s\n", name, result.Label)
	return nil
}

func parseSets(sets []string) (map[string]float64, error) {
	overrides := make(map[string]float64, len(sets))
	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: want name=value", s)
		}
		value, err := cast.ToFloat64E(strings.TrimSpace(raw))
		if err != nil || strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("--set %q: value is not a number", s)
		}
		overrides[strings.TrimSpace(key)] = value
	}
	return overrides, nil
}

func printNotices(out io.Writer, notices []workflow.Notice) {
	for _, n := range notices {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
	}
}
