package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stefanomil/SPIRV-Tools/internal/store"
)

// NewRunsCommand creates the runs command: list persisted fuzzing runs.
func NewRunsCommand(root *RootOptions) *cobra.Command {
	var storePath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted fuzzing runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    root.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   root.Verbose,
			}
			db, err := store.Open(storePath)
			if err != nil {
				out.Error(ErrCodeStoreFailed, err.Error(), nil)
				return WrapExitError(ExitCommandError, "open store", err)
			}
			defer db.Close()

			runs, err := db.ListRuns(cmd.Context())
			if err != nil {
				out.Error(ErrCodeStoreFailed, err.Error(), nil)
				return WrapExitError(ExitCommandError, "list runs", err)
			}

			if root.Format == "json" {
				return out.Success(runs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tCREATED\tSEED\tSTEPS")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Seed, r.StepCount)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "runs.db", "run store database path")

	return cmd
}
