package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/repodp/repodp/internal/domain"
)

// EnvPrefix — префикс переменных окружения, перекрывающих настройки файла.
const EnvPrefix = "REPODP_"

// ExtractionSettings — параметры извлечения файлов из репозитория.
type ExtractionSettings struct {
	// FileTypes — расширения файлов, попадающие в выборку.
	FileTypes []string `yaml:"file_types" json:"file_types"`
	// ExcludeDirs — каталоги, исключаемые из обхода.
	ExcludeDirs []string `yaml:"exclude_dirs" json:"exclude_dirs"`
	// ExcludeFiles — glob-шаблоны имён исключаемых файлов.
	ExcludeFiles []string `yaml:"exclude_files" json:"exclude_files"`
	// MaxFileSize — максимальный размер файла в байтах (0 — без ограничений).
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// CleaningSettings — параметры очистки содержимого.
type CleaningSettings struct {
	RemoveComments      bool `yaml:"remove_comments" json:"remove_comments"`
	RemoveBlankLines    bool `yaml:"remove_blank_lines" json:"remove_blank_lines"`
	RemoveImports       bool `yaml:"remove_imports" json:"remove_imports"`
	NormalizeWhitespace bool `yaml:"normalize_whitespace" json:"normalize_whitespace"`
}

// DeduplicationSettings — параметры дедупликации.
type DeduplicationSettings struct {
	// HashAlgorithm — алгоритм хеширования содержимого (sha256/md5).
	HashAlgorithm string `yaml:"hash_algorithm" json:"hash_algorithm"`
	// KeepStrategy — какой экземпляр группы дубликатов сохранять
	// (first/last/newest/oldest).
	KeepStrategy string `yaml:"keep_strategy" json:"keep_strategy"`
	// MinFileSize — файлы меньше этого размера не участвуют в дедупликации.
	MinFileSize int64 `yaml:"min_file_size" json:"min_file_size"`
	// SimilarityThreshold — порог схожести (0..1) для поиска почти
	// одинаковых файлов при анализе дубликатов. 0 отключает поиск.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
}

// MetricsSettings — пороговые значения фильтрации по метрикам.
// Запись, превышающая любой порог, отбрасывается.
type MetricsSettings struct {
	MaxLineCount         int     `yaml:"max_line_count" json:"max_line_count"`
	MaxLineLength        int     `yaml:"max_line_length" json:"max_line_length"`
	MaxFileSize          int64   `yaml:"max_file_size" json:"max_file_size"`
	MaxDigitPercentage   float64 `yaml:"max_digit_percentage" json:"max_digit_percentage"`
	MaxHexPercentage     float64 `yaml:"max_hex_percentage" json:"max_hex_percentage"`
	MaxCommentPercentage float64 `yaml:"max_comment_percentage" json:"max_comment_percentage"`
	MaxAverageLineLength float64 `yaml:"max_average_line_length" json:"max_average_line_length"`
}

// Duration — time.Duration с поддержкой строк вида "30m" в YAML.
type Duration time.Duration

// Std возвращает значение как time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML принимает строку формата time.ParseDuration
// либо число секунд.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// MarshalYAML сериализует значение строкой ("30m0s").
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// PerformanceSettings — параметры параллелизма.
type PerformanceSettings struct {
	// MaxWorkers — размер пула воркеров пакетной обработки.
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`
	// StepTimeout — таймаут выполнения одного шага.
	StepTimeout Duration `yaml:"step_timeout" json:"step_timeout"`
}

// Settings — глобальные настройки инструмента.
type Settings struct {
	// WorkDir — корневой рабочий каталог (клоны, артефакты, отчёты).
	WorkDir string `yaml:"work_dir" json:"work_dir"`

	Extraction    ExtractionSettings    `yaml:"extraction" json:"extraction"`
	Cleaning      CleaningSettings      `yaml:"cleaning" json:"cleaning"`
	Deduplication DeduplicationSettings `yaml:"deduplication" json:"deduplication"`
	Metrics       MetricsSettings       `yaml:"metrics" json:"metrics"`
	Performance   PerformanceSettings   `yaml:"performance" json:"performance"`
}

// StepConfig — описание шага пайплайна в конфигурационном файле.
type StepConfig struct {
	Name   string `yaml:"name" json:"name"`
	Kind   string `yaml:"kind" json:"kind"`
	Method string `yaml:"method" json:"method"`
	// Enabled — nil трактуется как true.
	Enabled   *bool          `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	DependsOn []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Params    map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// PipelineConfig — описание пайплайна в конфигурационном файле.
type PipelineConfig struct {
	Description     string       `yaml:"description,omitempty" json:"description,omitempty"`
	ContinueOnError bool         `yaml:"continue_on_error" json:"continue_on_error"`
	Steps           []StepConfig `yaml:"steps" json:"steps"`
}

// Config — разобранная конфигурация: настройки плюс именованные пайплайны.
type Config struct {
	Settings  Settings                  `yaml:"settings" json:"settings"`
	Pipelines map[string]PipelineConfig `yaml:"pipelines" json:"pipelines"`
}

// Default возвращает конфигурацию по умолчанию: настройки со
// здравыми значениями и два встроенных пайплайна.
func Default() *Config {
	return &Config{
		Settings: Settings{
			WorkDir: "./repodp-workspace",
			Extraction: ExtractionSettings{
				FileTypes: []string{
					".go", ".py", ".js", ".ts", ".java", ".c", ".cpp", ".h",
					".rs", ".rb", ".php", ".cs", ".kt", ".swift", ".sh",
				},
				ExcludeDirs: []string{
					".git", "node_modules", "vendor", "__pycache__",
					".venv", "dist", "build", "target",
				},
				ExcludeFiles: []string{"*.min.js", "*.lock", "*_pb2.py", "*.pb.go"},
				MaxFileSize:  1 << 20,
			},
			Cleaning: CleaningSettings{
				RemoveComments:      true,
				RemoveBlankLines:    true,
				RemoveImports:       false,
				NormalizeWhitespace: true,
			},
			Deduplication: DeduplicationSettings{
				HashAlgorithm:       "sha256",
				KeepStrategy:        "first",
				MinFileSize:         0,
				SimilarityThreshold: 0.95,
			},
			Metrics: MetricsSettings{
				MaxLineCount:         10000,
				MaxLineLength:        1000,
				MaxFileSize:          1 << 20,
				MaxDigitPercentage:   30,
				MaxHexPercentage:     30,
				MaxCommentPercentage: 80,
				MaxAverageLineLength: 200,
			},
			Performance: PerformanceSettings{
				MaxWorkers:  4,
				StepTimeout: Duration(30 * time.Minute),
			},
		},
		Pipelines: map[string]PipelineConfig{
			"standard": {
				Description: "Extract, deduplicate, clean and analyze repository files",
				Steps: []StepConfig{
					{Name: "extract", Kind: "extractor", Method: "file_extraction"},
					{Name: "dedup", Kind: "cleaner", Method: "deduplication",
						DependsOn: []string{"extract"}},
					{Name: "clean_content", Kind: "cleaner", Method: "content_cleaning",
						DependsOn: []string{"dedup"}},
					{Name: "clean_metrics", Kind: "cleaner", Method: "metrics_cleaning",
						DependsOn: []string{"clean_content"}},
					{Name: "analyze", Kind: "analyzer", Method: "metrics_analysis",
						DependsOn: []string{"clean_metrics"}},
				},
			},
			"minimal": {
				Description: "Extract and deduplicate only",
				Steps: []StepConfig{
					{Name: "extract", Kind: "extractor", Method: "file_extraction"},
					{Name: "dedup", Kind: "cleaner", Method: "deduplication",
						DependsOn: []string{"extract"}},
				},
			},
		},
	}
}

// Load читает конфигурацию из файла поверх значений по умолчанию
// и применяет переменные окружения REPODP_*.
//
// Пустой path означает конфигурацию по умолчанию. Отсутствующий файл
// по явному пути — ошибка.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Settings.Performance.MaxWorkers < 1 {
		cfg.Settings.Performance.MaxWorkers = 1
	}

	return cfg, nil
}

// applyEnv перекрывает настройки переменными окружения.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPrefix + "WORK_DIR"); v != "" {
		c.Settings.WorkDir = v
	}
	if v := os.Getenv(EnvPrefix + "MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Settings.Performance.MaxWorkers = n
		}
	}
	if v := os.Getenv(EnvPrefix + "STEP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Settings.Performance.StepTimeout = Duration(d)
		}
	}
	if v := os.Getenv(EnvPrefix + "HASH_ALGORITHM"); v != "" {
		c.Settings.Deduplication.HashAlgorithm = v
	}
	if v := os.Getenv(EnvPrefix + "KEEP_STRATEGY"); v != "" {
		c.Settings.Deduplication.KeepStrategy = v
	}
}

// PipelineNames возвращает имена пайплайнов в алфавитном порядке.
func (c *Config) PipelineNames() []string {
	names := make([]string, 0, len(c.Pipelines))
	for name := range c.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve собирает неизменяемый domain.Pipeline по имени.
//
// Параметры каждого шага рассчитываются один раз при сборке:
// значения из секций настроек перекрываются params шага в конфигурации.
// Дальнейшие изменения настроек на собранный пайплайн не влияют.
func (c *Config) Resolve(name string) (*domain.Pipeline, error) {
	if name == "" {
		return nil, ErrEmptyPipelineName
	}

	pc, ok := c.Pipelines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, name)
	}

	p := &domain.Pipeline{
		Name:            name,
		Description:     pc.Description,
		ContinueOnError: pc.ContinueOnError,
		Steps:           make([]domain.StepSpec, 0, len(pc.Steps)),
	}

	for _, sc := range pc.Steps {
		enabled := true
		if sc.Enabled != nil {
			enabled = *sc.Enabled
		}

		p.Steps = append(p.Steps, domain.StepSpec{
			Name:      sc.Name,
			Kind:      domain.StepKind(sc.Kind),
			Method:    sc.Method,
			Enabled:   enabled,
			DependsOn: append([]string(nil), sc.DependsOn...),
			Params:    c.stepParams(sc.Method, sc.Params),
		})
	}

	return p, nil
}

// stepParams сшивает параметры шага: значения из секций настроек,
// затем явные params шага поверх них.
func (c *Config) stepParams(method string, overrides map[string]any) map[string]any {
	params := c.methodDefaults(method)
	for k, v := range overrides {
		params[k] = v
	}
	return params
}

// methodDefaults возвращает параметры метода из секций настроек.
func (c *Config) methodDefaults(method string) map[string]any {
	s := c.Settings

	switch method {
	case domain.MethodFileExtraction:
		return map[string]any{
			"file_types":    append([]string(nil), s.Extraction.FileTypes...),
			"exclude_dirs":  append([]string(nil), s.Extraction.ExcludeDirs...),
			"exclude_files": append([]string(nil), s.Extraction.ExcludeFiles...),
			"max_file_size": s.Extraction.MaxFileSize,
		}
	case domain.MethodDeduplication, domain.MethodDuplicateAnalysis:
		return map[string]any{
			"hash_algorithm":       s.Deduplication.HashAlgorithm,
			"keep_strategy":        s.Deduplication.KeepStrategy,
			"min_file_size":        s.Deduplication.MinFileSize,
			"similarity_threshold": s.Deduplication.SimilarityThreshold,
		}
	case domain.MethodContentCleaning:
		return map[string]any{
			"remove_comments":      s.Cleaning.RemoveComments,
			"remove_blank_lines":   s.Cleaning.RemoveBlankLines,
			"remove_imports":       s.Cleaning.RemoveImports,
			"normalize_whitespace": s.Cleaning.NormalizeWhitespace,
		}
	case domain.MethodMetricsCleaning, domain.MethodMetricsAnalysis:
		return map[string]any{
			"max_line_count":          s.Metrics.MaxLineCount,
			"max_line_length":         s.Metrics.MaxLineLength,
			"max_file_size":           s.Metrics.MaxFileSize,
			"max_digit_percentage":    s.Metrics.MaxDigitPercentage,
			"max_hex_percentage":      s.Metrics.MaxHexPercentage,
			"max_comment_percentage":  s.Metrics.MaxCommentPercentage,
			"max_average_line_length": s.Metrics.MaxAverageLineLength,
		}
	}
	return map[string]any{}
}

// Set изменяет одно значение настроек по ключу вида "section.field".
func (c *Config) Set(key, value string) error {
	parts := strings.SplitN(key, ".", 2)

	switch {
	case key == "work_dir":
		c.Settings.WorkDir = value
		return nil
	case len(parts) == 2 && parts[0] == "deduplication" && parts[1] == "hash_algorithm":
		c.Settings.Deduplication.HashAlgorithm = value
		return nil
	case len(parts) == 2 && parts[0] == "deduplication" && parts[1] == "keep_strategy":
		c.Settings.Deduplication.KeepStrategy = value
		return nil
	case len(parts) == 2 && parts[0] == "performance" && parts[1] == "max_workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid max_workers value: %s", value)
		}
		c.Settings.Performance.MaxWorkers = n
		return nil
	case len(parts) == 2 && parts[0] == "performance" && parts[1] == "step_timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid step_timeout value: %s", value)
		}
		c.Settings.Performance.StepTimeout = Duration(d)
		return nil
	}

	return fmt.Errorf("unknown config key: %s", key)
}

// Save сериализует конфигурацию в YAML файл.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
