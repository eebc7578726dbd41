package steps

import (
	"context"
	"fmt"

	"github.com/repodp/repodp/internal/domain"
)

// Step — интерфейс реализации метода обработки.
//
// Набор реализаций закрыт: новые методы добавляются веткой в For,
// произвольная регистрация извне не предусмотрена.
type Step interface {
	// Kind возвращает вид шага.
	Kind() domain.StepKind

	// Method возвращает имя метода.
	Method() string

	// Execute выполняет шаг: читает входной артефакт (если нужен),
	// пишет выходной и возвращает статистику.
	// Шаг должен проверять ctx.Done() для graceful shutdown.
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// Request — входные данные для выполнения шага.
type Request struct {
	// RepoName — имя обрабатываемого репозитория.
	RepoName string

	// RepoPath — путь к рабочей копии репозитория.
	// Используется только экстракторами.
	RepoPath string

	// Input — путь к входному артефакту.
	// Пуст для шагов, которым вход не нужен.
	Input string

	// Output — путь выходного артефакта.
	Output string

	// Params — параметры шага, собранные конфигурацией.
	Params map[string]any
}

// Result — результат выполнения шага.
type Result struct {
	// Stats — статистика шага, попадает в отчёт выполнения.
	Stats map[string]any
}

// NewResult создаёт Result со статистикой.
func NewResult(stats map[string]any) *Result {
	if stats == nil {
		stats = make(map[string]any)
	}
	return &Result{Stats: stats}
}

// For возвращает реализацию для описания шага.
//
// Диспетчеризация исчерпывающая: метод вне закрытого набора — ошибка
// ErrUnsupportedMethod, без тихого fallback.
func For(spec *domain.StepSpec) (Step, error) {
	switch spec.Method {
	case domain.MethodFileExtraction:
		return NewExtractStep(), nil
	case domain.MethodDeduplication:
		return NewDedupStep(), nil
	case domain.MethodContentCleaning:
		return NewContentCleanStep(), nil
	case domain.MethodMetricsCleaning:
		return NewMetricsCleanStep(), nil
	case domain.MethodDuplicateAnalysis:
		return NewDuplicateAnalysisStep(), nil
	case domain.MethodMetricsAnalysis:
		return NewMetricsAnalysisStep(), nil
	}

	return nil, fmt.Errorf("%w: %s (kind %s)", ErrUnsupportedMethod, spec.Method, spec.Kind)
}
