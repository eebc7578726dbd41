package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/engine"
	"github.com/repodp/repodp/internal/steps"
	"github.com/repodp/repodp/internal/telemetry"
)

// ReportFileName — имя файла отчёта о прогоне в выходном каталоге.
const ReportFileName = "pipeline_report.json"

// Executor выполняет пайплайн для одного репозитория.
//
// Выполнение — обход топологического порядка графа зависимостей:
//   - выключенные шаги пропускаются, их зависимые — тоже
//   - входной артефакт шага — выход первой (в порядке объявления)
//     успешной зависимости
//   - при отказе шага дальнейшее поведение определяет политика
//     continue_on_error пайплайна
//
// Результат каждого шага фиксируется в отчёте; сам прогон
// завершается ошибкой только при инфраструктурных сбоях.
type Executor struct {
	pipeline *domain.Pipeline
	graph    *engine.Graph
	order    []string
	runner   StepRunner
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// Config — конфигурация Executor.
type Config struct {
	// Pipeline — выполняемый пайплайн.
	Pipeline *domain.Pipeline

	// Runner — исполнитель шагов (default: NewRunner).
	Runner StepRunner

	// Logger — логгер (default: slog.Default).
	Logger *slog.Logger

	// Metrics — метрики (nil — без метрик).
	Metrics *telemetry.Metrics

	// StepTimeout — таймаут шага для runner по умолчанию.
	StepTimeout time.Duration
}

// New создаёт Executor, валидируя пайплайн и строя граф один раз.
func New(cfg Config) (*Executor, error) {
	if cfg.Pipeline == nil {
		return nil, ErrNilPipeline
	}
	if err := engine.Validate(cfg.Pipeline); err != nil {
		return nil, fmt.Errorf("validate pipeline %s: %w", cfg.Pipeline.Name, err)
	}

	graph, err := engine.Build(cfg.Pipeline.Steps)
	if err != nil {
		return nil, err
	}
	order, err := graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	runner := cfg.Runner
	if runner == nil {
		runner = NewRunner(RunnerConfig{StepTimeout: cfg.StepTimeout, Logger: cfg.Logger})
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		pipeline: cfg.Pipeline,
		graph:    graph,
		order:    order,
		runner:   runner,
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// Execute выполняет пайплайн для репозитория repoName с рабочей
// копией в repoPath, складывая артефакты и отчёт в outputDir.
func (e *Executor) Execute(ctx context.Context, repoName, repoPath, outputDir string) (*domain.ExecutionReport, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", outputDir, err)
	}

	report := &domain.ExecutionReport{
		RunID:        uuid.New(),
		PipelineName: e.pipeline.Name,
		RepoName:     repoName,
		OutputDir:    outputDir,
		StartedAt:    time.Now().UTC(),
		StepResults:  make(map[string]*domain.StepResult),
	}

	logger := telemetry.WithRunID(
		telemetry.WithRepo(
			telemetry.WithPipeline(e.logger, e.pipeline.Name), repoName),
		report.RunID.String())
	logger.Info("pipeline started", "steps", len(e.order))

	statuses := make(map[string]domain.StepStatus, len(e.order))
	// Реестр артефактов: имя шага → путь произведённого выхода.
	artifacts := make(map[string]string, len(e.order))
	halted := false

	for _, name := range e.order {
		spec := e.pipeline.Step(name)
		result := &domain.StepResult{
			StepName:  name,
			Kind:      spec.Kind,
			Method:    spec.Method,
			Status:    domain.StepStatusPending,
			StartedAt: time.Now().UTC(),
		}
		report.StepResults[name] = result

		if skip, reason := e.skipReason(spec, statuses, halted); skip {
			result.MarkSkipped(reason)
			statuses[name] = domain.StepStatusSkipped
			logger.Info("step skipped", "step", name, "reason", reason)
			continue
		}

		input := e.pickInput(spec, artifacts)
		output := filepath.Join(outputDir, domain.ArtifactName(repoName, name, spec.Kind))

		statuses[name] = domain.StepStatusRunning
		result.Status = domain.StepStatusRunning
		started := time.Now()

		res, err := e.runner.RunStep(ctx, spec, &steps.Request{
			RepoName: repoName,
			RepoPath: repoPath,
			Input:    input,
			Output:   output,
			Params:   spec.Params,
		})
		elapsed := time.Since(started)

		if err != nil {
			result.MarkFailed(err.Error())
			statuses[name] = domain.StepStatusFailed
			report.Errors = append(report.Errors, fmt.Sprintf("step %s: %v", name, err))
			e.metrics.ObserveStep(spec.Method, "failed", elapsed.Seconds())
			logger.Error("step failed", "step", name, "error", err, "duration", elapsed)

			if ctx.Err() != nil {
				halted = true
			} else if !e.pipeline.ContinueOnError {
				halted = true
			}
			continue
		}

		result.MarkSucceeded(output, res.Stats)
		statuses[name] = domain.StepStatusSucceeded
		artifacts[name] = output
		report.CompletedSteps = append(report.CompletedSteps, name)
		e.metrics.ObserveStep(spec.Method, "succeeded", elapsed.Seconds())
		logger.Info("step succeeded", "step", name, "duration", elapsed)
	}

	report.EndedAt = time.Now().UTC()
	report.OverallSuccess = len(report.Errors) == 0

	if report.OverallSuccess {
		e.metrics.ObserveRun("succeeded")
		logger.Info("pipeline finished", "completed_steps", len(report.CompletedSteps), "duration", report.Duration())
	} else {
		e.metrics.ObserveRun("failed")
		logger.Error("pipeline finished with errors", "errors", len(report.Errors), "duration", report.Duration())
	}

	if err := WriteReport(filepath.Join(outputDir, ReportFileName), report); err != nil {
		return report, err
	}
	return report, nil
}

// skipReason решает, нужно ли пропустить шаг, и с какой причиной.
func (e *Executor) skipReason(spec *domain.StepSpec, statuses map[string]domain.StepStatus, halted bool) (bool, string) {
	if halted {
		return true, "execution stopped after earlier failure"
	}
	if !spec.Enabled {
		return true, "step is disabled"
	}
	for _, dep := range spec.DependsOn {
		if statuses[dep] != domain.StepStatusSucceeded {
			return true, fmt.Sprintf("dependency %s did not succeed", dep)
		}
	}
	return false, ""
}

// pickInput выбирает входной артефакт: выход первой зависимости
// в порядке объявления, произведшей артефакт.
func (e *Executor) pickInput(spec *domain.StepSpec, artifacts map[string]string) string {
	if !spec.NeedsInput() {
		return ""
	}
	for _, dep := range spec.DependsOn {
		if path, ok := artifacts[dep]; ok {
			return path
		}
	}
	return ""
}

// WriteReport сериализует отчёт в JSON файл.
func WriteReport(path string, report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
