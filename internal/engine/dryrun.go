package engine

import "github.com/repodp/repodp/internal/domain"

// Simulate выполняет предпросмотр pipeline: та же валидация,
// тот же порядок и то же гейтирование can_execute, что и у
// исполнителя, но ни один шаг не вызывается.
//
// Имена выходных файлов считаются той же функцией, что и при
// реальном выполнении, поэтому предпросмотр точен. Повторный
// вызов на том же pipeline даёт идентичный результат.
func Simulate(p *domain.Pipeline, repoName string) (*domain.DryRunReport, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	graph, err := Build(p.Steps)
	if err != nil {
		return nil, err
	}

	order, err := graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	report := &domain.DryRunReport{
		PipelineName:     p.Name,
		ExecutionOrder:   order,
		TotalSteps:       len(p.Steps),
		EnabledSteps:     p.EnabledCount(),
		Steps:            make([]domain.DryRunStep, 0, len(order)),
		EstimatedOutputs: make([]string, 0, len(order)),
	}

	completed := make(map[string]bool, len(order))

	for _, name := range order {
		spec := p.Step(name)

		if !canExecute(spec, completed) {
			continue
		}

		output := domain.ArtifactName(repoName, spec.Name, spec.Kind)
		report.Steps = append(report.Steps, domain.DryRunStep{
			Name:       spec.Name,
			Kind:       spec.Kind,
			Method:     spec.Method,
			Enabled:    spec.Enabled,
			DependsOn:  spec.DependsOn,
			InputFrom:  inputFrom(spec, completed),
			OutputFile: output,
		})
		report.EstimatedOutputs = append(report.EstimatedOutputs, output)

		completed[name] = true
	}

	return report, nil
}

// canExecute — то же правило готовности, что у исполнителя:
// шаг включён и все его зависимости успешно завершены.
func canExecute(spec *domain.StepSpec, completed map[string]bool) bool {
	if !spec.Enabled {
		return false
	}
	for _, dep := range spec.DependsOn {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// inputFrom возвращает имя шага-источника входного артефакта:
// первая по порядку объявления завершённая зависимость.
func inputFrom(spec *domain.StepSpec, completed map[string]bool) string {
	if !spec.NeedsInput() {
		return ""
	}
	for _, dep := range spec.DependsOn {
		if completed[dep] {
			return dep
		}
	}
	return ""
}
