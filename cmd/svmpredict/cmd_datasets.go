package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDatasetsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the configured datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMODEL\tLABELS\tFEATURES")
			for _, name := range a.wf.ListDatasetNames() {
				p, err := a.wf.GetProfile(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.Name, p.ModelPath, len(p.ClassLabels), strings.Join(p.InputFeatures, ","))
			}
			return w.Flush()
		},
	}
}
