package cli

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewHistoryCmd создаёт группу команд истории прогонов.
func NewHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past pipeline runs",
	}

	cmd.AddCommand(
		newHistoryListCmd(app),
		newHistoryShowCmd(app),
	)

	return cmd
}

func newHistoryListCmd(app *App) *cobra.Command {
	var (
		repoName string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			history, err := app.Store(cfg)
			if err != nil {
				return err
			}
			defer history.Close()

			runs, err := history.ListRuns(repoName, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, run := range runs {
				rows[i] = []string{
					run.RunID.String(),
					run.Pipeline,
					run.RepoName,
					strconv.FormatBool(run.Success),
					run.StartedAt.Format(time.RFC3339),
				}
			}

			app.Output().Print([]string{"RUN ID", "PIPELINE", "REPOSITORY", "SUCCESS", "STARTED"}, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoName, "repo", "", "Filter by repository name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the full report of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}

			cfg, err := app.Config()
			if err != nil {
				return err
			}
			history, err := app.Store(cfg)
			if err != nil {
				return err
			}
			defer history.Close()

			report, err := history.GetRun(runID)
			if err != nil {
				return err
			}

			app.Output().RunReport(report)
			return nil
		},
	}
}
