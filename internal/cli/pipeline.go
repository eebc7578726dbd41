package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/repodp/repodp/internal/engine"
	"github.com/repodp/repodp/internal/executor"
	"github.com/repodp/repodp/internal/telemetry"
)

// NewPipelineCmd создаёт группу команд для работы с пайплайнами.
func NewPipelineCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Inspect and run processing pipelines",
	}

	cmd.AddCommand(
		newPipelineListCmd(app),
		newPipelineValidateCmd(app),
		newPipelineDryRunCmd(app),
		newPipelineRunCmd(app),
	)

	return cmd
}

func newPipelineListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}

			type pipelineInfo struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Steps       int    `json:"steps"`
				Enabled     int    `json:"enabled_steps"`
			}

			var infos []pipelineInfo
			var rows [][]string
			for _, name := range cfg.PipelineNames() {
				p, err := cfg.Resolve(name)
				if err != nil {
					return err
				}
				info := pipelineInfo{
					Name:        name,
					Description: p.Description,
					Steps:       len(p.Steps),
					Enabled:     p.EnabledCount(),
				}
				infos = append(infos, info)
				rows = append(rows, []string{
					info.Name,
					strconv.Itoa(info.Steps),
					strconv.Itoa(info.Enabled),
					info.Description,
				})
			}

			app.Output().Print([]string{"NAME", "STEPS", "ENABLED", "DESCRIPTION"}, rows, infos)
			return nil
		},
	}
}

func newPipelineValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate PIPELINE",
		Short: "Validate a pipeline definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			p, err := cfg.Resolve(args[0])
			if err != nil {
				return err
			}

			if err := engine.Validate(p); err != nil {
				return fmt.Errorf("pipeline %s is invalid: %w", args[0], err)
			}

			app.Output().Success(fmt.Sprintf("Pipeline %s is valid (%d steps)", args[0], len(p.Steps)))
			return nil
		},
	}
}

func newPipelineDryRunCmd(app *App) *cobra.Command {
	var repoName string

	cmd := &cobra.Command{
		Use:   "dry-run PIPELINE",
		Short: "Show the execution plan without running anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			p, err := cfg.Resolve(args[0])
			if err != nil {
				return err
			}

			plan, err := engine.Simulate(p, repoName)
			if err != nil {
				return err
			}

			rows := make([][]string, len(plan.Steps))
			for i, step := range plan.Steps {
				input := step.InputFrom
				if input == "" {
					input = "-"
				}
				output := step.OutputFile
				if output == "" {
					output = "-"
				}
				rows[i] = []string{
					strconv.Itoa(i + 1),
					step.Name,
					string(step.Kind),
					step.Method,
					strconv.FormatBool(step.Enabled),
					input,
					output,
				}
			}

			out := app.Output()
			out.Print([]string{"#", "STEP", "KIND", "METHOD", "ENABLED", "INPUT FROM", "OUTPUT"}, rows, plan)
			if !app.JSONOutput {
				out.Success(fmt.Sprintf("%d of %d steps would execute", plan.EnabledSteps, plan.TotalSteps))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repoName, "repo", "repo", "Repository name used for artifact naming")

	return cmd
}

func newPipelineRunCmd(app *App) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "run PIPELINE REPO",
		Short: "Run a pipeline for a single repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}
			p, err := cfg.Resolve(args[0])
			if err != nil {
				return err
			}

			manager, err := app.Repos(cfg)
			if err != nil {
				return err
			}
			repo, err := manager.Get(args[1])
			if err != nil {
				return err
			}

			exec, err := executor.New(executor.Config{
				Pipeline:    p,
				Logger:      telemetry.FromContext(cmd.Context()),
				StepTimeout: cfg.Settings.Performance.StepTimeout.Std(),
			})
			if err != nil {
				return err
			}

			outputDir := filepath.Join(app.OutputDir(cfg, outputFlag), repo.Name)
			report, err := exec.Execute(cmd.Context(), repo.Name, repo.Path, outputDir)
			if err != nil {
				return err
			}

			if history, err := app.Store(cfg); err == nil {
				defer history.Close()
				if saveErr := history.SaveRun(report); saveErr != nil {
					telemetry.FromContext(cmd.Context()).Warn("history save failed", "error", saveErr)
				}
			}

			app.Output().RunReport(report)
			if !report.OverallSuccess {
				return fmt.Errorf("pipeline %s failed for %s", args[0], args[1])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputFlag, "output", "", "Output directory (default: <workdir>/output)")

	return cmd
}
