package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repodp/repodp/internal/batch"
	"github.com/repodp/repodp/internal/config"
	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/scheduler"
	"github.com/repodp/repodp/internal/telemetry"
)

// NewBatchCmd создаёт группу команд пакетной обработки.
func NewBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run pipelines across multiple repositories",
	}

	cmd.AddCommand(
		newBatchRunCmd(app),
		newBatchScheduleCmd(app),
	)

	return cmd
}

// batchTargets собирает цели пакетного прогона: перечисленные имена
// либо все зарегистрированные репозитории.
func batchTargets(app *App, cfg *config.Config, names []string) ([]batch.RepoTarget, error) {
	manager, err := app.Repos(cfg)
	if err != nil {
		return nil, err
	}

	var targets []batch.RepoTarget
	if len(names) == 0 {
		for _, entry := range manager.List() {
			targets = append(targets, batch.RepoTarget{Name: entry.Name, Path: entry.Path})
		}
		return targets, nil
	}

	for _, name := range names {
		entry, err := manager.Get(name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, batch.RepoTarget{Name: entry.Name, Path: entry.Path})
	}
	return targets, nil
}

// batchOptions — параметры пакетного прогона из флагов команды.
type batchOptions struct {
	workers    int
	merge      bool
	outputFlag string
}

// runBatch выполняет пакетный прогон и сохраняет его в историю.
func runBatch(ctx context.Context, app *App, cfg *config.Config, pipelineName string, names []string, opts batchOptions, metrics *telemetry.Metrics) (*domain.BatchReport, error) {
	p, err := cfg.Resolve(pipelineName)
	if err != nil {
		return nil, err
	}

	targets, err := batchTargets(app, cfg, names)
	if err != nil {
		return nil, err
	}

	workers := opts.workers
	if workers <= 0 {
		workers = cfg.Settings.Performance.MaxWorkers
	}

	orch, err := batch.New(batch.Config{
		Pipeline:    p,
		Workers:     workers,
		Merge:       opts.merge,
		Metrics:     metrics,
		StepTimeout: cfg.Settings.Performance.StepTimeout.Std(),
	})
	if err != nil {
		return nil, err
	}

	outputDir := app.OutputDir(cfg, opts.outputFlag)
	report, err := orch.Run(ctx, targets, outputDir)
	if err != nil {
		return nil, err
	}

	if history, err := app.Store(cfg); err == nil {
		defer history.Close()
		if saveErr := history.SaveBatch(report); saveErr != nil {
			telemetry.FromContext(ctx).Warn("history save failed", "error", saveErr)
		}
	}
	return report, nil
}

func newBatchRunCmd(app *App) *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "run PIPELINE [REPO...]",
		Short: "Run a pipeline for several repositories (default: all registered)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}

			report, err := runBatch(cmd.Context(), app, cfg, args[0], args[1:], opts, nil)
			if err != nil {
				return err
			}

			app.Output().BatchReport(report)
			if report.FailedCount > 0 {
				return fmt.Errorf("%d of %d repositories failed",
					report.FailedCount, len(report.Repositories))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Worker pool size (default: performance.max_workers)")
	cmd.Flags().BoolVar(&opts.merge, "merge", false, "Merge same-named step artifacts across repositories")
	cmd.Flags().StringVar(&opts.outputFlag, "output", "", "Output directory (default: <workdir>/output)")

	return cmd
}

func newBatchScheduleCmd(app *App) *cobra.Command {
	var (
		cronExpr string
		httpAddr string
		opts     batchOptions
	)

	cmd := &cobra.Command{
		Use:   "schedule PIPELINE [REPO...]",
		Short: "Run a pipeline on a cron schedule (long-running)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config()
			if err != nil {
				return err
			}

			logger := telemetry.SetupLogger()
			metrics := telemetry.NewMetrics()

			sched, err := scheduler.New(scheduler.Config{
				CronExpr: cronExpr,
				HTTPAddr: httpAddr,
				Logger:   logger,
				Run: func(ctx context.Context) error {
					report, err := runBatch(ctx, app, cfg, args[0], args[1:], opts, metrics)
					if err != nil {
						return err
					}
					if report.FailedCount > 0 {
						return fmt.Errorf("%d repositories failed", report.FailedCount)
					}
					return nil
				},
			})
			if err != nil {
				return err
			}

			err = sched.Start(cmd.Context())
			if err == context.Canceled || err == context.DeadlineExceeded {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "0 3 * * *", "Cron expression (5 fields)")
	cmd.Flags().StringVar(&httpAddr, "metrics-addr", ":9090", "Address for /healthz and /metrics")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Worker pool size (default: performance.max_workers)")
	cmd.Flags().BoolVar(&opts.merge, "merge", false, "Merge same-named step artifacts across repositories")
	cmd.Flags().StringVar(&opts.outputFlag, "output", "", "Output directory (default: <workdir>/output)")

	return cmd
}
