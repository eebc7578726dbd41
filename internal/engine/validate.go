package engine

import (
	"fmt"

	"github.com/repodp/repodp/internal/domain"
)

// Validate выполняет полную валидацию pipeline.
//
// Проверяет:
//   - наличие шагов
//   - уникальность имён
//   - корректность kind и пары (kind, method)
//   - валидность зависимостей (depends_on)
//   - отсутствие циклов
//
// Все проверки выполняются до запуска первого шага; любая ошибка
// здесь — конфигурационная, run не стартует.
func Validate(p *domain.Pipeline) error {
	if p == nil || len(p.Steps) == 0 {
		return ErrEmptySteps
	}

	seen := make(map[string]bool, len(p.Steps))
	for i := range p.Steps {
		step := &p.Steps[i]

		if err := validateStep(step, seen); err != nil {
			return err
		}
	}

	// Build проверяет depends_on и дубликаты ещё раз, но главное —
	// даёт граф для проверки цикла.
	graph, err := Build(p.Steps)
	if err != nil {
		return err
	}

	if graph.HasCycle() {
		return NewValidationError("", "depends_on",
			"pipeline contains a dependency cycle", ErrCyclicDependency)
	}

	return nil
}

// validateStep валидирует один шаг.
// seen — уже встреченные имена (для проверки уникальности).
func validateStep(step *domain.StepSpec, seen map[string]bool) error {
	if step.Name == "" {
		return NewValidationError("", "name", "step has empty name", ErrEmptyStepName)
	}

	if seen[step.Name] {
		return NewValidationError(step.Name, "name",
			fmt.Sprintf("duplicate step name: %s", step.Name), ErrDuplicateStepName)
	}
	seen[step.Name] = true

	if !step.Kind.IsValid() {
		return NewValidationError(step.Name, "kind",
			fmt.Sprintf("unknown step kind: %s", step.Kind), ErrUnknownStepKind)
	}

	if !domain.KnownMethod(step.Kind, step.Method) {
		return NewValidationError(step.Name, "method",
			fmt.Sprintf("unknown method %q for kind %s", step.Method, step.Kind), ErrUnknownMethod)
	}

	for _, dep := range step.DependsOn {
		if dep == step.Name {
			return NewValidationError(step.Name, "depends_on",
				"step depends on itself", ErrSelfDependency)
		}
	}

	return nil
}
