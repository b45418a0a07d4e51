package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmdeploy/history"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		path   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "history [deployment-id]",
		Short: "List recorded deployments, or show one of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			if path == "" {
				if path, err = history.DefaultPath(); err != nil {
					return err
				}
			}
			repo, err := history.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			if len(args) == 1 {
				row, err := repo.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return renderDeployment(cmd.OutOrStdout(), format, row)
			}
			rows, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderHistory(cmd.OutOrStdout(), format, rows)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of deployments to list (0 for all)")
	cmd.Flags().StringVar(&path, "path", "", "History database path (default ~/.xmdeploy/history.db)")
	cmd.Flags().StringVarP(&output, "output", "o", string(outputText), "Output format: text, json or yaml")
	return cmd
}
