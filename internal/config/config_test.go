package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/repodp/repodp/internal/domain"
)

func TestDefault_HasBuiltinPipelines(t *testing.T) {
	cfg := Default()

	names := cfg.PipelineNames()
	if len(names) != 2 || names[0] != "minimal" || names[1] != "standard" {
		t.Fatalf("pipeline names = %v, want [minimal standard]", names)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `settings:
  work_dir: /data/repos
  performance:
    max_workers: 8
    step_timeout: 5m
pipelines:
  custom:
    description: test pipeline
    steps:
      - name: extract
        kind: extractor
        method: file_extraction
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Settings.WorkDir != "/data/repos" {
		t.Errorf("WorkDir = %q, want /data/repos", cfg.Settings.WorkDir)
	}
	if cfg.Settings.Performance.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8", cfg.Settings.Performance.MaxWorkers)
	}
	if cfg.Settings.Performance.StepTimeout.Std() != 5*time.Minute {
		t.Errorf("StepTimeout = %v, want 5m", cfg.Settings.Performance.StepTimeout.Std())
	}
	if _, ok := cfg.Pipelines["custom"]; !ok {
		t.Error("custom pipeline missing after load")
	}
	// Настройки, не упомянутые в файле, остаются дефолтными.
	if cfg.Settings.Deduplication.HashAlgorithm != "sha256" {
		t.Errorf("HashAlgorithm = %q, want sha256", cfg.Settings.Deduplication.HashAlgorithm)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"WORK_DIR", "/env/dir")
	t.Setenv(EnvPrefix+"MAX_WORKERS", "16")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings.WorkDir != "/env/dir" {
		t.Errorf("WorkDir = %q, want /env/dir", cfg.Settings.WorkDir)
	}
	if cfg.Settings.Performance.MaxWorkers != 16 {
		t.Errorf("MaxWorkers = %d, want 16", cfg.Settings.Performance.MaxWorkers)
	}
}

func TestResolve_LayersParams(t *testing.T) {
	cfg := Default()
	cfg.Pipelines["tuned"] = PipelineConfig{
		Steps: []StepConfig{
			{Name: "extract", Kind: "extractor", Method: "file_extraction",
				Params: map[string]any{"max_file_size": 42}},
			{Name: "dedup", Kind: "cleaner", Method: "deduplication",
				DependsOn: []string{"extract"}},
		},
	}

	p, err := cfg.Resolve("tuned")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	extract := p.Step("extract")
	if extract == nil {
		t.Fatal("extract step missing")
	}
	// Явный параметр шага перекрывает значение из настроек.
	if got := extract.Params["max_file_size"]; got != 42 {
		t.Errorf("max_file_size = %v, want 42", got)
	}
	// Остальные значения приходят из секции настроек.
	if _, ok := extract.Params["file_types"]; !ok {
		t.Error("file_types not layered from settings")
	}

	dedup := p.Step("dedup")
	if got := dedup.Params["keep_strategy"]; got != "first" {
		t.Errorf("keep_strategy = %v, want first", got)
	}
}

func TestResolve_ImmutableAfterSettingsChange(t *testing.T) {
	cfg := Default()

	p, err := cfg.Resolve("standard")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	cfg.Settings.Deduplication.KeepStrategy = "last"

	if got := p.Step("dedup").Params["keep_strategy"]; got != "first" {
		t.Errorf("resolved pipeline changed after settings mutation: %v", got)
	}
}

func TestResolve_DisabledFlag(t *testing.T) {
	disabled := false
	cfg := Default()
	cfg.Pipelines["partial"] = PipelineConfig{
		Steps: []StepConfig{
			{Name: "extract", Kind: "extractor", Method: "file_extraction"},
			{Name: "dedup", Kind: "cleaner", Method: "deduplication",
				Enabled: &disabled, DependsOn: []string{"extract"}},
		},
	}

	p, err := cfg.Resolve("partial")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !p.Step("extract").Enabled {
		t.Error("extract should default to enabled")
	}
	if p.Step("dedup").Enabled {
		t.Error("dedup should be disabled")
	}
}

func TestResolve_NotFound(t *testing.T) {
	cfg := Default()
	if _, err := cfg.Resolve("no-such-pipeline"); !errors.Is(err, ErrPipelineNotFound) {
		t.Fatalf("err = %v, want ErrPipelineNotFound", err)
	}
	if _, err := cfg.Resolve(""); !errors.Is(err, ErrEmptyPipelineName) {
		t.Fatalf("err = %v, want ErrEmptyPipelineName", err)
	}
}

func TestSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("performance.max_workers", "12"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.Settings.Performance.MaxWorkers != 12 {
		t.Errorf("MaxWorkers = %d, want 12", cfg.Settings.Performance.MaxWorkers)
	}

	if err := cfg.Set("deduplication.keep_strategy", "newest"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.Settings.Deduplication.KeepStrategy != "newest" {
		t.Errorf("KeepStrategy = %q, want newest", cfg.Settings.Deduplication.KeepStrategy)
	}

	if err := cfg.Set("bogus.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := cfg.Set("performance.max_workers", "zero"); err == nil {
		t.Error("expected error for non-numeric max_workers")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Settings.WorkDir = "/saved/dir"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Settings.WorkDir != "/saved/dir" {
		t.Errorf("WorkDir = %q, want /saved/dir", loaded.Settings.WorkDir)
	}
	if _, err := loaded.Resolve("standard"); err != nil {
		t.Errorf("Resolve after round trip: %v", err)
	}
}

func TestResolve_KindIsValid(t *testing.T) {
	cfg := Default()
	p, err := cfg.Resolve("standard")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, s := range p.Steps {
		if !s.Kind.IsValid() {
			t.Errorf("step %s has invalid kind %q", s.Name, s.Kind)
		}
		if !domain.KnownMethod(s.Kind, s.Method) {
			t.Errorf("step %s has unknown method %q", s.Name, s.Method)
		}
	}
}
