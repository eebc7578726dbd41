package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// StepResult — результат выполнения одного шага.
//
// Создаётся заново на каждый run и не владеет ресурсами:
// артефакт принадлежит шагу до того, как его прочитает следующий
// шаг или merge фаза; оркестратор артефакты не мутирует.
type StepResult struct {
	// StepName — имя шага.
	StepName string `json:"step_name"`

	// Kind — тип шага.
	Kind StepKind `json:"kind"`

	// Method — метод шага.
	Method string `json:"method"`

	// Status — финальный статус шага.
	Status StepStatus `json:"status"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// EndedAt — время завершения.
	EndedAt time.Time `json:"ended_at"`

	// Success — true только для SUCCEEDED.
	Success bool `json:"success"`

	// OutputArtifact — путь к выходному артефакту, если шаг его произвёл.
	OutputArtifact string `json:"output_artifact,omitempty"`

	// Stats — статистика шага (ключи зависят от метода).
	Stats map[string]any `json:"stats,omitempty"`

	// Errors — накопленные ошибки выполнения.
	Errors []string `json:"errors,omitempty"`
}

// MarkSucceeded переводит результат в SUCCEEDED.
func (r *StepResult) MarkSucceeded(artifact string, stats map[string]any) {
	r.Status = StepStatusSucceeded
	r.Success = true
	r.OutputArtifact = artifact
	r.Stats = stats
	r.EndedAt = time.Now()
}

// MarkFailed переводит результат в FAILED с ошибкой.
func (r *StepResult) MarkFailed(errMsg string) {
	r.Status = StepStatusFailed
	r.Success = false
	r.Errors = append(r.Errors, errMsg)
	r.EndedAt = time.Now()
}

// MarkSkipped переводит результат в SKIPPED с причиной.
func (r *StepResult) MarkSkipped(reason string) {
	r.Status = StepStatusSkipped
	r.Success = false
	r.Errors = append(r.Errors, reason)
	r.EndedAt = time.Now()
}

// ExecutionReport — отчёт о выполнении pipeline для одного репозитория.
//
// Сериализуется в pipeline_report.json в выходном каталоге run'а.
// Отчёт пишется и при частичном провале: успешные артефакты
// остаются на диске для инспекции.
type ExecutionReport struct {
	// RunID — уникальный идентификатор run.
	RunID uuid.UUID `json:"run_id"`

	// PipelineName — имя выполненного pipeline.
	PipelineName string `json:"pipeline_name"`

	// RepoName — имя обработанного репозитория.
	RepoName string `json:"repository_name"`

	// OutputDir — каталог с артефактами этого run.
	OutputDir string `json:"output_dir"`

	// StartedAt — время начала run.
	StartedAt time.Time `json:"started_at"`

	// EndedAt — время завершения run.
	EndedAt time.Time `json:"ended_at"`

	// CompletedSteps — успешно выполненные шаги в порядке выполнения.
	CompletedSteps []string `json:"completed_steps"`

	// StepResults — результаты по имени шага (включая SKIPPED и FAILED).
	StepResults map[string]*StepResult `json:"step_results"`

	// OverallSuccess — true, если ни один шаг не упал.
	// Пропущенные шаги провалом не считаются.
	OverallSuccess bool `json:"overall_success"`

	// Errors — ошибки уровня run.
	Errors []string `json:"errors,omitempty"`
}

// Duration возвращает продолжительность run.
func (r *ExecutionReport) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// OrderedResults возвращает результаты шагов в порядке запуска.
func (r *ExecutionReport) OrderedResults() []*StepResult {
	results := make([]*StepResult, 0, len(r.StepResults))
	for _, result := range r.StepResults {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].StartedAt.Equal(results[j].StartedAt) {
			return results[i].StartedAt.Before(results[j].StartedAt)
		}
		return results[i].StepName < results[j].StepName
	})
	return results
}

// MergeSummary — итог слияния одноимённых артефактов шага по репозиториям.
type MergeSummary struct {
	// StepName — имя шага, чьи выходы слиты.
	StepName string `json:"step_name"`

	// MergedFilePath — путь к объединённому JSONL файлу.
	MergedFilePath string `json:"merged_file_path"`

	// TotalRecords — количество записей в объединённом файле.
	TotalRecords int `json:"total_records"`

	// SkippedRecords — количество пропущенных некорректных записей.
	SkippedRecords int `json:"skipped_records"`

	// SourceRepoCount — количество репозиториев-источников.
	SourceRepoCount int `json:"source_repo_count"`
}

// BatchReport — отчёт о выполнении pipeline по набору репозиториев.
//
// Сериализуется в batch_pipeline_report.json. Пишется и при частичном
// провале; упавшие репозитории перечислены со своими ошибками и
// автоматически не перезапускаются.
type BatchReport struct {
	// BatchID — уникальный идентификатор batch run.
	BatchID uuid.UUID `json:"batch_id"`

	// PipelineName — имя pipeline.
	PipelineName string `json:"pipeline_name"`

	// Repositories — имена обработанных репозиториев.
	Repositories []string `json:"repositories"`

	// StartedAt — время начала batch.
	StartedAt time.Time `json:"started_at"`

	// EndedAt — время завершения batch.
	EndedAt time.Time `json:"ended_at"`

	// Reports — отчёты по имени репозитория.
	// Порядок вставки — порядок завершения, не порядок подачи.
	Reports map[string]*ExecutionReport `json:"per_repo_reports"`

	// SucceededCount — количество успешных репозиториев.
	SucceededCount int `json:"succeeded_count"`

	// FailedCount — количество упавших репозиториев.
	FailedCount int `json:"failed_count"`

	// MergedArtifacts — итоги merge фазы по имени шага (если запрошена).
	MergedArtifacts map[string]*MergeSummary `json:"merged_artifacts,omitempty"`
}

// DryRunStep — один шаг в предпросмотре выполнения.
type DryRunStep struct {
	// Name — имя шага.
	Name string `json:"name"`

	// Kind — тип шага.
	Kind StepKind `json:"kind"`

	// Method — метод шага.
	Method string `json:"method"`

	// Enabled — включён ли шаг.
	Enabled bool `json:"enabled"`

	// DependsOn — зависимости шага.
	DependsOn []string `json:"depends_on,omitempty"`

	// InputFrom — имя шага, чей артефакт пойдёт на вход ("" если входа нет).
	InputFrom string `json:"input_from,omitempty"`

	// OutputFile — предрассчитанное имя выходного файла.
	// Совпадает с именем при реальном выполнении.
	OutputFile string `json:"output_file"`
}

// DryRunReport — результат симуляции pipeline без вызова шагов.
type DryRunReport struct {
	// PipelineName — имя pipeline.
	PipelineName string `json:"pipeline_name"`

	// ExecutionOrder — топологический порядок всех шагов.
	ExecutionOrder []string `json:"execution_order"`

	// TotalSteps — общее количество шагов.
	TotalSteps int `json:"total_steps"`

	// EnabledSteps — количество включённых шагов.
	EnabledSteps int `json:"enabled_steps"`

	// Steps — шаги, которые реально выполнились бы, в порядке выполнения.
	Steps []DryRunStep `json:"steps"`

	// EstimatedOutputs — имена выходных файлов выполнившихся шагов.
	EstimatedOutputs []string `json:"estimated_outputs"`
}
