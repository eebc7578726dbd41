package domain

import "fmt"

// StepKind — тип шага pipeline.
type StepKind string

const (
	// KindExtractor — извлечение файлов из дерева репозитория в JSONL.
	KindExtractor StepKind = "extractor"

	// KindCleaner — очистка записей артефакта (дедупликация, чистка контента).
	KindCleaner StepKind = "cleaner"

	// KindAnalyzer — анализ артефакта, результат — JSON-отчёт.
	KindAnalyzer StepKind = "analyzer"
)

// IsValid проверяет, что kind — один из известных типов.
func (k StepKind) IsValid() bool {
	switch k {
	case KindExtractor, KindCleaner, KindAnalyzer:
		return true
	default:
		return false
	}
}

// Методы шагов. Закрытое множество: новая пара (kind, method)
// добавляется явным case в steps.For, а не строковым lookup'ом.
const (
	// MethodFileExtraction — обход дерева репозитория, запись по файлу.
	MethodFileExtraction = "file_extraction"

	// MethodDeduplication — удаление дубликатов по хэшу содержимого.
	MethodDeduplication = "deduplication"

	// MethodContentCleaning — чистка содержимого (комментарии, пустые строки, импорты).
	MethodContentCleaning = "content_cleaning"

	// MethodMetricsCleaning — фильтрация записей по порогам файловых метрик.
	MethodMetricsCleaning = "metrics_cleaning"

	// MethodDuplicateAnalysis — отчёт о группах дубликатов.
	MethodDuplicateAnalysis = "duplicate_analysis"

	// MethodMetricsAnalysis — агрегированные файловые метрики.
	MethodMetricsAnalysis = "metrics_analysis"
)

// KnownMethod проверяет, что пара (kind, method) входит в закрытое множество.
func KnownMethod(kind StepKind, method string) bool {
	switch kind {
	case KindExtractor:
		return method == MethodFileExtraction
	case KindCleaner:
		switch method {
		case MethodDeduplication, MethodContentCleaning, MethodMetricsCleaning:
			return true
		}
	case KindAnalyzer:
		switch method {
		case MethodDuplicateAnalysis, MethodMetricsAnalysis:
			return true
		}
	}
	return false
}

// StepSpec — неизменяемое объявление одного шага pipeline.
//
// Params уже содержит слитую конфигурацию (настройки секции →
// defaults pipeline → params шага), разрешённую один раз при загрузке.
type StepSpec struct {
	// Name — уникальное имя шага в рамках pipeline.
	// Используется в depends_on и в имени выходного артефакта.
	Name string `json:"name"`

	// Kind — тип шага: extractor, cleaner или analyzer.
	Kind StepKind `json:"kind"`

	// Method — метод внутри типа (например, "deduplication").
	Method string `json:"method"`

	// Enabled — выключенный шаг никогда не исполняется; зависящие
	// от него шаги получают неудовлетворённую зависимость.
	Enabled bool `json:"enabled"`

	// DependsOn — имена шагов, которые должны успешно завершиться
	// до запуска этого шага.
	DependsOn []string `json:"depends_on,omitempty"`

	// Params — параметры шага, слитые поверх defaults pipeline.
	Params map[string]any `json:"params,omitempty"`
}

// NeedsInput возвращает true, если шагу нужен входной артефакт.
// Extractor читает дерево репозитория и входа не требует.
func (s *StepSpec) NeedsInput() bool {
	return s.Kind != KindExtractor
}

// Pipeline — именованный, упорядоченный набор шагов с зависимостями.
//
// Pipeline загружается из конфигурации один раз и неизменяем на всё
// время выполнения — безопасно разделяется параллельными воркерами.
type Pipeline struct {
	// Name — уникальное имя pipeline.
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// ContinueOnError — при false первый упавший шаг останавливает run.
	ContinueOnError bool `json:"continue_on_error"`

	// Steps — шаги в порядке объявления. Имена уникальны.
	Steps []StepSpec `json:"steps"`
}

// Step возвращает шаг по имени, nil если не найден.
func (p *Pipeline) Step(name string) *StepSpec {
	for i := range p.Steps {
		if p.Steps[i].Name == name {
			return &p.Steps[i]
		}
	}
	return nil
}

// EnabledCount возвращает количество включённых шагов.
func (p *Pipeline) EnabledCount() int {
	n := 0
	for i := range p.Steps {
		if p.Steps[i].Enabled {
			n++
		}
	}
	return n
}

// ArtifactName возвращает детерминированное имя выходного артефакта:
// {repo}_{step}.jsonl, для analyzer — {repo}_{step}.json.
// Повторные запуски перезаписывают те же файлы, а merge фазе
// достаточно имени шага, чтобы найти одноимённые выходы по репозиториям.
func ArtifactName(repoName, stepName string, kind StepKind) string {
	ext := "jsonl"
	if kind == KindAnalyzer {
		ext = "json"
	}
	return fmt.Sprintf("%s_%s.%s", repoName, stepName, ext)
}
