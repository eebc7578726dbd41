package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/repodp/repodp/internal/domain"
)

// NewRepoCmd создаёт группу команд для управления репозиториями.
func NewRepoCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage tracked repositories",
	}

	cmd.AddCommand(
		newRepoAddCmd(app),
		newRepoAddLocalCmd(app),
		newRepoUpdateCmd(app),
		newRepoRemoveCmd(app),
		newRepoListCmd(app),
	)

	return cmd
}

func repoRow(r *domain.Repository) []string {
	origin := r.URL
	if r.Local {
		origin = "(local)"
	}
	commit := r.CommitHash
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return []string{r.Name, origin, commit, r.LastUpdated.Format(time.RFC3339)}
}

var repoHeaders = []string{"NAME", "ORIGIN", "COMMIT", "UPDATED"}

func newRepoAddCmd(app *App) *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "add NAME URL",
		Short: "Clone and register a remote repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			manager, err := app.Repos(cfg)
			if err != nil {
				return err
			}

			entry, err := manager.Add(cmd.Context(), args[0], args[1], branch)
			if err != nil {
				return err
			}

			out := app.Output()
			out.Success(fmt.Sprintf("Repository %s cloned to %s", entry.Name, entry.Path))
			out.Print(repoHeaders, [][]string{repoRow(entry)}, entry)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch to clone (default: remote default branch)")

	return cmd
}

func newRepoAddLocalCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add-local NAME PATH",
		Short: "Register an existing local directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			manager, err := app.Repos(cfg)
			if err != nil {
				return err
			}

			entry, err := manager.AddLocal(args[0], args[1])
			if err != nil {
				return err
			}

			out := app.Output()
			out.Success(fmt.Sprintf("Local repository %s registered", entry.Name))
			out.Print(repoHeaders, [][]string{repoRow(entry)}, entry)
			return nil
		},
	}
}

func newRepoUpdateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "update NAME",
		Short: "Pull latest changes for a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			manager, err := app.Repos(cfg)
			if err != nil {
				return err
			}

			entry, err := manager.Update(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := app.Output()
			out.Success(fmt.Sprintf("Repository %s updated", entry.Name))
			out.Print(repoHeaders, [][]string{repoRow(entry)}, entry)
			return nil
		},
	}
}

func newRepoRemoveCmd(app *App) *cobra.Command {
	var deleteFiles bool

	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a repository from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			manager, err := app.Repos(cfg)
			if err != nil {
				return err
			}

			if err := manager.Remove(args[0], deleteFiles); err != nil {
				return err
			}

			app.Output().Success(fmt.Sprintf("Repository %s removed", args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "Also delete the cloned working copy")

	return cmd
}

func newRepoListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			manager, err := app.Repos(cfg)
			if err != nil {
				return err
			}

			list := manager.List()
			rows := make([][]string, len(list))
			for i, entry := range list {
				row := repoRow(entry)
				rows[i] = []string{row[0], row[1], row[2], strconv.FormatBool(entry.Local), row[3]}
			}

			headers := []string{"NAME", "ORIGIN", "COMMIT", "LOCAL", "UPDATED"}
			app.Output().Print(headers, rows, list)
			return nil
		},
	}
}
