package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/executor"
	"github.com/repodp/repodp/internal/telemetry"
)

// BatchReportFileName — имя файла сводного отчёта пакетного прогона.
const BatchReportFileName = "batch_pipeline_report.json"

// defaultWorkers — размер пула воркеров по умолчанию.
const defaultWorkers = 4

// RepoTarget — один репозиторий пакетного прогона.
type RepoTarget struct {
	// Name — имя репозитория, уникально внутри пакета.
	Name string
	// Path — путь к рабочей копии.
	Path string
}

// Orchestrator выполняет пайплайн для набора репозиториев.
//
// Репозитории обрабатываются пулом воркеров. Контексты изолированы:
// каждый репозиторий получает собственный выходной каталог и
// собственный ExecutionReport, отказ одного не трогает остальные.
type Orchestrator struct {
	pipeline *domain.Pipeline
	workers  int
	merge    bool
	runner   executor.StepRunner
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	timeout  time.Duration
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Pipeline — выполняемый пайплайн.
	Pipeline *domain.Pipeline

	// Workers — размер пула воркеров (default: 4).
	Workers int

	// Merge — объединять одноимённые артефакты шагов после прогона.
	Merge bool

	// Runner — исполнитель шагов (default: executor.NewRunner).
	Runner executor.StepRunner

	// Logger — логгер (default: slog.Default).
	Logger *slog.Logger

	// Metrics — метрики (nil — без метрик).
	Metrics *telemetry.Metrics

	// StepTimeout — таймаут шага.
	StepTimeout time.Duration
}

// New создаёт Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Pipeline == nil {
		return nil, executor.ErrNilPipeline
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		pipeline: cfg.Pipeline,
		workers:  workers,
		merge:    cfg.Merge,
		runner:   cfg.Runner,
		logger:   logger,
		metrics:  cfg.Metrics,
		timeout:  cfg.StepTimeout,
	}, nil
}

// repoOutcome — результат обработки одного репозитория.
type repoOutcome struct {
	name   string
	report *domain.ExecutionReport
	err    error
}

// Run выполняет пайплайн для всех репозиториев и пишет сводный отчёт
// в outputDir. Артефакты репозитория складываются в outputDir/<name>.
//
// Возвращаемая ошибка означает невозможность прогона; отказы
// отдельных репозиториев отражаются в отчёте.
func (o *Orchestrator) Run(ctx context.Context, targets []RepoTarget, outputDir string) (*domain.BatchReport, error) {
	if len(targets) == 0 {
		return nil, ErrNoRepositories
	}
	if err := validateTargets(targets); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", outputDir, err)
	}

	report := &domain.BatchReport{
		BatchID:      uuid.New(),
		PipelineName: o.pipeline.Name,
		StartedAt:    time.Now().UTC(),
		Reports:      make(map[string]*domain.ExecutionReport, len(targets)),
	}
	for _, target := range targets {
		report.Repositories = append(report.Repositories, target.Name)
	}
	sort.Strings(report.Repositories)

	logger := o.logger.With("batch_id", report.BatchID.String(), "pipeline", o.pipeline.Name)
	logger.Info("batch started", "repositories", len(targets), "workers", o.workers)

	jobs := make(chan RepoTarget)
	outcomes := make(chan repoOutcome)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range jobs {
				outcomes <- o.processRepo(ctx, target, outputDir)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, target := range targets {
			select {
			case jobs <- target:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Результаты собираются в порядке завершения.
	for outcome := range outcomes {
		if outcome.err != nil {
			report.FailedCount++
			report.Reports[outcome.name] = failureReport(o.pipeline.Name, outcome)
			logger.Error("repository failed", "repository", outcome.name, "error", outcome.err)
			continue
		}

		report.Reports[outcome.name] = outcome.report
		if outcome.report.OverallSuccess {
			report.SucceededCount++
		} else {
			report.FailedCount++
		}
	}

	// Недошедшие до воркеров репозитории при отмене контекста.
	for _, target := range targets {
		if _, ok := report.Reports[target.Name]; !ok {
			report.FailedCount++
			report.Reports[target.Name] = failureReport(o.pipeline.Name, repoOutcome{
				name: target.Name,
				err:  fmt.Errorf("not processed: %w", ctx.Err()),
			})
		}
	}

	// Merge выполняется строго после остановки пула.
	if o.merge {
		merged, err := MergeArtifacts(o.pipeline, report, filepath.Join(outputDir, "merged"), logger)
		if err != nil {
			logger.Error("merge failed", "error", err)
		} else {
			report.MergedArtifacts = merged
		}
	}

	report.EndedAt = time.Now().UTC()
	logger.Info("batch finished",
		"succeeded", report.SucceededCount,
		"failed", report.FailedCount,
		"duration", report.EndedAt.Sub(report.StartedAt),
	)

	if err := executor.WriteReport(filepath.Join(outputDir, BatchReportFileName), report); err != nil {
		return report, err
	}
	return report, nil
}

// processRepo выполняет пайплайн для одного репозитория в изолированном
// контексте: отдельный Executor, отдельный выходной каталог.
func (o *Orchestrator) processRepo(ctx context.Context, target RepoTarget, outputDir string) repoOutcome {
	o.metrics.WorkerStarted()
	defer o.metrics.WorkerFinished()

	exec, err := executor.New(executor.Config{
		Pipeline:    o.pipeline,
		Runner:      o.runner,
		Logger:      o.logger,
		Metrics:     o.metrics,
		StepTimeout: o.timeout,
	})
	if err != nil {
		return repoOutcome{name: target.Name, err: err}
	}

	repoReport, err := exec.Execute(ctx, target.Name, target.Path, filepath.Join(outputDir, target.Name))
	if err != nil {
		return repoOutcome{name: target.Name, err: err}
	}
	return repoOutcome{name: target.Name, report: repoReport}
}

// failureReport строит отчёт для репозитория, который не удалось обработать.
func failureReport(pipelineName string, outcome repoOutcome) *domain.ExecutionReport {
	now := time.Now().UTC()
	return &domain.ExecutionReport{
		RunID:          uuid.New(),
		PipelineName:   pipelineName,
		RepoName:       outcome.name,
		StartedAt:      now,
		EndedAt:        now,
		StepResults:    make(map[string]*domain.StepResult),
		OverallSuccess: false,
		Errors:         []string{outcome.err.Error()},
	}
}

// validateTargets проверяет уникальность имён и непустые поля.
func validateTargets(targets []RepoTarget) error {
	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		if target.Name == "" {
			return fmt.Errorf("repository with empty name (path %s)", target.Path)
		}
		if seen[target.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateRepoName, target.Name)
		}
		seen[target.Name] = true
	}
	return nil
}
