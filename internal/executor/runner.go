package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/steps"
)

// StepRunner выполняет один шаг пайплайна.
//
// Интерфейс отделяет обход графа от запуска реализаций:
// в тестах исполнителя используется фиктивный runner.
type StepRunner interface {
	RunStep(ctx context.Context, spec *domain.StepSpec, req *steps.Request) (*steps.Result, error)
}

// Runner — StepRunner поверх закрытого набора реализаций steps.
type Runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// RunnerConfig — конфигурация Runner.
type RunnerConfig struct {
	// StepTimeout — таймаут выполнения одного шага (0 — без таймаута).
	StepTimeout time.Duration

	// Logger — логгер (default: slog.Default).
	Logger *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{timeout: cfg.StepTimeout, logger: logger}
}

// RunStep находит реализацию метода и выполняет её.
//
// Перед запуском проверяется согласованность описания: вид шага
// должен совпадать с видом реализации, обязательный вход — быть задан.
// Отсутствие входа — ошибка шага, а не тихий пропуск.
func (r *Runner) RunStep(ctx context.Context, spec *domain.StepSpec, req *steps.Request) (*steps.Result, error) {
	impl, err := steps.For(spec)
	if err != nil {
		return nil, err
	}

	if impl.Kind() != spec.Kind {
		return nil, fmt.Errorf("%w: step %s declares %s, method %s is %s",
			ErrKindMismatch, spec.Name, spec.Kind, spec.Method, impl.Kind())
	}

	if spec.NeedsInput() && req.Input == "" {
		return nil, fmt.Errorf("%w: step %s", ErrInputUnavailable, spec.Name)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.logger.Debug("running step",
		"step", spec.Name,
		"method", spec.Method,
		"input", req.Input,
		"output", req.Output,
	)

	return impl.Execute(ctx, req)
}
