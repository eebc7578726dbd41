package steps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/jsonl"
)

func TestFor_CoversAllMethods(t *testing.T) {
	cases := []struct {
		kind   domain.StepKind
		method string
	}{
		{domain.KindExtractor, domain.MethodFileExtraction},
		{domain.KindCleaner, domain.MethodDeduplication},
		{domain.KindCleaner, domain.MethodContentCleaning},
		{domain.KindCleaner, domain.MethodMetricsCleaning},
		{domain.KindAnalyzer, domain.MethodDuplicateAnalysis},
		{domain.KindAnalyzer, domain.MethodMetricsAnalysis},
	}

	for _, tc := range cases {
		step, err := For(&domain.StepSpec{Kind: tc.kind, Method: tc.method})
		if err != nil {
			t.Fatalf("For(%s): %v", tc.method, err)
		}
		if step.Method() != tc.method {
			t.Errorf("Method() = %s, want %s", step.Method(), tc.method)
		}
		if step.Kind() != tc.kind {
			t.Errorf("Kind() = %s, want %s", step.Kind(), tc.kind)
		}
	}
}

func TestFor_UnsupportedMethod(t *testing.T) {
	_, err := For(&domain.StepSpec{Kind: domain.KindCleaner, Method: "quantum_cleaning"})
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("err = %v, want ErrUnsupportedMethod", err)
	}
}

// makeRepo раскладывает файлы во временный каталог репозитория.
func makeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func extractParams() map[string]any {
	return map[string]any{
		"file_types":   []string{".go", ".py"},
		"exclude_dirs": []string{"vendor"},
	}
}

func TestExtract_WalksAndFilters(t *testing.T) {
	repo := makeRepo(t, map[string]string{
		"main.go":          "package main\n\nfunc main() {}\n",
		"util.py":          "def f():\n    return 1\n",
		"README.md":        "# readme\n",
		"vendor/dep.go":    "package dep\n",
		"sub/handler.go":   "package sub\n",
		"binary.go.backup": "x",
	})
	output := filepath.Join(t.TempDir(), "r_extract.jsonl")

	step := NewExtractStep()
	res, err := step.Execute(context.Background(), &Request{
		RepoName: "r",
		RepoPath: repo,
		Output:   output,
		Params:   extractParams(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, err := jsonl.ReadAll(output)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("extracted %d records, want 3", len(records))
	}

	paths := make(map[string]jsonl.Record)
	for _, rec := range records {
		paths[rec.String("path")] = rec
	}
	if _, ok := paths["vendor/dep.go"]; ok {
		t.Error("vendor dir should be excluded")
	}
	if _, ok := paths["README.md"]; ok {
		t.Error(".md should be filtered by file_types")
	}

	mainRec, ok := paths["main.go"]
	if !ok {
		t.Fatal("main.go missing")
	}
	if mainRec.String("language") != "go" {
		t.Errorf("language = %q, want go", mainRec.String("language"))
	}
	if mainRec.String("hash") == "" {
		t.Error("hash is empty")
	}
	if mainRec.Int("lines") != 3 {
		t.Errorf("lines = %d, want 3", mainRec.Int("lines"))
	}

	if res.Stats["files_extracted"] != 3 {
		t.Errorf("files_extracted = %v, want 3", res.Stats["files_extracted"])
	}
}

func TestExtract_MaxFileSize(t *testing.T) {
	repo := makeRepo(t, map[string]string{
		"small.go": "package a\n",
		"big.go":   "package a\n// " + string(make([]byte, 100)) + "\n",
	})
	output := filepath.Join(t.TempDir(), "out.jsonl")

	params := extractParams()
	params["max_file_size"] = 50

	_, err := NewExtractStep().Execute(context.Background(), &Request{
		RepoPath: repo, Output: output, Params: params,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, _ := jsonl.ReadAll(output)
	if len(records) != 1 || records[0].String("name") != "small.go" {
		t.Errorf("expected only small.go, got %d records", len(records))
	}
}

// writeRecords пишет записи в JSONL файл для шагов-очистителей.
func writeRecords(t *testing.T, records []jsonl.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.jsonl")
	w, err := jsonl.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestDedup_RemovesDuplicates(t *testing.T) {
	input := writeRecords(t, []jsonl.Record{
		{"path": "a.go", "size": 10, "content": "same text!", "modified_at": "2024-01-01T00:00:00Z"},
		{"path": "b.go", "size": 10, "content": "same text!", "modified_at": "2024-06-01T00:00:00Z"},
		{"path": "c.go", "size": 10, "content": "different", "modified_at": "2024-03-01T00:00:00Z"},
		{"path": "d.go", "size": 4, "content": "tiny"},
	})
	output := filepath.Join(t.TempDir(), "out.jsonl")

	res, err := NewDedupStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: output,
		Params: map[string]any{"keep_strategy": "first"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, _ := jsonl.ReadAll(output)
	if len(records) != 3 {
		t.Fatalf("kept %d records, want 3", len(records))
	}
	// Порядок исходного артефакта сохранён, выжил первый дубликат.
	if records[0].String("path") != "a.go" {
		t.Errorf("first record = %s, want a.go", records[0].String("path"))
	}

	if res.Stats["original_count"] != 4 || res.Stats["removed_count"] != 1 {
		t.Errorf("stats = %v", res.Stats)
	}
}

func TestDedup_KeepNewest(t *testing.T) {
	input := writeRecords(t, []jsonl.Record{
		{"path": "old.go", "size": 10, "content": "same text!", "modified_at": "2024-01-01T00:00:00Z"},
		{"path": "new.go", "size": 10, "content": "same text!", "modified_at": "2024-06-01T00:00:00Z"},
	})
	output := filepath.Join(t.TempDir(), "out.jsonl")

	_, err := NewDedupStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: output,
		Params: map[string]any{"keep_strategy": "newest"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, _ := jsonl.ReadAll(output)
	if len(records) != 1 || records[0].String("path") != "new.go" {
		t.Errorf("expected new.go to survive, got %v", records)
	}
}

func TestDedup_IgnoresStaleHashField(t *testing.T) {
	// После очистки содержимое совпало, но поле hash осталось от
	// исходных версий. Дедупликация должна опираться на содержимое.
	input := writeRecords(t, []jsonl.Record{
		{"path": "a.go", "size": 10, "content": "same text!", "hash": "aaaa"},
		{"path": "b.go", "size": 10, "content": "same text!", "hash": "bbbb"},
	})
	output := filepath.Join(t.TempDir(), "out.jsonl")

	res, err := NewDedupStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: output,
		Params: map[string]any{"keep_strategy": "first"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, _ := jsonl.ReadAll(output)
	if len(records) != 1 || records[0].String("path") != "a.go" {
		t.Fatalf("kept records = %v, want only a.go", records)
	}
	if res.Stats["deduplicated_count"] != 1 {
		t.Errorf("stats = %v", res.Stats)
	}
}

func TestContentClean_RefreshesHash(t *testing.T) {
	input := writeRecords(t, []jsonl.Record{
		{"path": "a.go", "size": 20, "language": "go", "hash": "stale",
			"content": "code()\n// comment"},
	})
	output := filepath.Join(t.TempDir(), "out.jsonl")

	_, err := NewContentCleanStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: output,
		Params: map[string]any{"remove_comments": true},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, _ := jsonl.ReadAll(output)
	cleaned := records[0]
	sum := sha256.Sum256([]byte(cleaned.String("content")))
	if got := cleaned.String("hash"); got != hex.EncodeToString(sum[:]) {
		t.Errorf("hash = %q, want recomputed digest of cleaned content", got)
	}
}

func TestDedup_UnknownStrategy(t *testing.T) {
	input := writeRecords(t, []jsonl.Record{{"path": "a.go", "size": 1, "content": "x"}})

	_, err := NewDedupStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: filepath.Join(t.TempDir(), "out.jsonl"),
		Params: map[string]any{"keep_strategy": "random"},
	})
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrInvalidParams", err)
	}
}

func TestDedup_MissingInput(t *testing.T) {
	_, err := NewDedupStep().Execute(context.Background(), &Request{
		Output: filepath.Join(t.TempDir(), "out.jsonl"),
		Params: map[string]any{},
	})
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("err = %v, want ErrMissingInput", err)
	}
}

func TestContentClean_RemovesCommentsAndBlanks(t *testing.T) {
	content := "package main\n\n// comment line\nfunc main() {\n\t/* block */ x := 1\n\t_ = x   \n}\n"
	input := writeRecords(t, []jsonl.Record{
		{"path": "main.go", "language": "go", "size": len(content), "content": content},
	})
	output := filepath.Join(t.TempDir(), "out.jsonl")

	_, err := NewContentCleanStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: output,
		Params: map[string]any{
			"remove_comments":      true,
			"remove_blank_lines":   true,
			"normalize_whitespace": true,
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, _ := jsonl.ReadAll(output)
	cleaned := records[0].String("content")

	if containsLine(cleaned, "// comment line") {
		t.Error("line comment not removed")
	}
	if containsLine(cleaned, "") {
		t.Error("blank lines not removed")
	}
	if records[0].Int("size") != len(cleaned) {
		t.Error("size not recomputed")
	}
}

func TestContentClean_RemoveImports(t *testing.T) {
	content := "import os\nfrom sys import path\ndef f():\n    return 1\n"
	input := writeRecords(t, []jsonl.Record{
		{"path": "u.py", "language": "python", "size": len(content), "content": content},
	})
	output := filepath.Join(t.TempDir(), "out.jsonl")

	_, err := NewContentCleanStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: output,
		Params: map[string]any{"remove_imports": true, "remove_comments": false},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, _ := jsonl.ReadAll(output)
	cleaned := records[0].String("content")
	if containsLine(cleaned, "import os") || containsLine(cleaned, "from sys import path") {
		t.Errorf("imports not removed: %q", cleaned)
	}
	if !containsLine(cleaned, "def f():") {
		t.Errorf("code removed along with imports: %q", cleaned)
	}
}

func TestMetricsClean_FiltersByThresholds(t *testing.T) {
	longLine := strings.Repeat("a", 600)
	input := writeRecords(t, []jsonl.Record{
		{"path": "ok.go", "size": 20, "content": "short\nlines\nhere"},
		{"path": "wide.go", "size": 600, "content": longLine},
		{"path": "digits.go", "size": 10, "content": "1234567890"},
	})
	output := filepath.Join(t.TempDir(), "out.jsonl")

	res, err := NewMetricsCleanStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: output,
		Params: map[string]any{
			"max_line_length":      500,
			"max_digit_percentage": 50.0,
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, _ := jsonl.ReadAll(output)
	if len(records) != 1 || records[0].String("path") != "ok.go" {
		t.Fatalf("kept records = %v, want only ok.go", records)
	}
	removedBy, ok := res.Stats["removed_by"].(map[string]int)
	if !ok {
		t.Fatalf("removed_by has unexpected type %T", res.Stats["removed_by"])
	}
	if removedBy["max_line_length"] != 1 || removedBy["max_digit_percentage"] != 1 {
		t.Errorf("removed_by = %v", removedBy)
	}
}

func TestMetricsClean_CommentPercentage(t *testing.T) {
	commented := "// one\n// two\n// three\ncode()"
	input := writeRecords(t, []jsonl.Record{
		{"path": "noisy.go", "size": 30, "language": "go", "content": commented},
		{"path": "ok.go", "size": 20, "language": "go", "content": "a()\nb()\nc()\n// note"},
	})
	output := filepath.Join(t.TempDir(), "out.jsonl")

	_, err := NewMetricsCleanStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: output,
		Params: map[string]any{"max_comment_percentage": 50.0},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	records, _, _ := jsonl.ReadAll(output)
	if len(records) != 1 || records[0].String("path") != "ok.go" {
		t.Fatalf("kept records = %v, want only ok.go", records)
	}
}

func TestDuplicateAnalysis_Report(t *testing.T) {
	input := writeRecords(t, []jsonl.Record{
		{"path": "a.go", "size": 10, "content": "same text!"},
		{"path": "b.go", "size": 10, "content": "same text!"},
		{"path": "c.go", "size": 7, "content": "unique!"},
	})
	output := filepath.Join(t.TempDir(), "dups.json")

	res, err := NewDuplicateAnalysisStep().Execute(context.Background(), &Request{
		Input: input, Output: output, Params: map[string]any{},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats["duplicate_groups"] != 1 || res.Stats["duplicate_files"] != 2 {
		t.Errorf("stats = %v", res.Stats)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report struct {
		DuplicateGroups int `json:"duplicate_groups"`
		Groups          []struct {
			Count int      `json:"count"`
			Files []string `json:"files"`
		} `json:"groups"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.DuplicateGroups != 1 || len(report.Groups) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Groups[0].Files) != 2 {
		t.Errorf("group files = %v", report.Groups[0].Files)
	}
}

func TestDuplicateAnalysis_SimilarPairs(t *testing.T) {
	input := writeRecords(t, []jsonl.Record{
		{"path": "a.go", "size": 23, "content": "one\ntwo\nthree\nfour\nfive"},
		{"path": "b.go", "size": 24, "content": "one\ntwo\nthree\nfour\nFIVE!"},
		{"path": "c.go", "size": 10, "content": "alpha\nbeta"},
	})
	output := filepath.Join(t.TempDir(), "dups.json")

	res, err := NewDuplicateAnalysisStep().Execute(context.Background(), &Request{
		Input:  input,
		Output: output,
		Params: map[string]any{"similarity_threshold": 0.8},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats["similar_pairs"] != 1 {
		t.Errorf("similar_pairs = %v, want 1", res.Stats["similar_pairs"])
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report struct {
		SimilarPairs []struct {
			First      string  `json:"first"`
			Second     string  `json:"second"`
			Similarity float64 `json:"similarity"`
		} `json:"similar_pairs"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if len(report.SimilarPairs) != 1 {
		t.Fatalf("pairs = %+v, want a.go/b.go only", report.SimilarPairs)
	}
	pair := report.SimilarPairs[0]
	if pair.First != "a.go" || pair.Second != "b.go" || pair.Similarity < 0.8 {
		t.Errorf("pair = %+v", pair)
	}
}

func TestMetricsAnalysis_Report(t *testing.T) {
	input := writeRecords(t, []jsonl.Record{
		{"path": "a.go", "language": "go", "size": 20, "content": "package a\nvar X = 1"},
		{"path": "b.go", "language": "go", "size": 10, "content": "package b"},
		{"path": "u.py", "language": "python", "size": 8, "content": "x = 1"},
	})
	output := filepath.Join(t.TempDir(), "metrics.json")

	res, err := NewMetricsAnalysisStep().Execute(context.Background(), &Request{
		Input: input, Output: output, Params: map[string]any{},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats["analyzed_records"] != 3 {
		t.Errorf("analyzed_records = %v, want 3", res.Stats["analyzed_records"])
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report struct {
		TotalRecords int `json:"total_records"`
		Languages    []struct {
			Language string `json:"language"`
			Files    int    `json:"files"`
		} `json:"languages"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.TotalRecords != 3 {
		t.Errorf("total_records = %d, want 3", report.TotalRecords)
	}
	// Языки отсортированы по количеству файлов.
	if len(report.Languages) != 2 || report.Languages[0].Language != "go" {
		t.Errorf("languages = %v", report.Languages)
	}
}

// containsLine проверяет наличие строки (целиком) в тексте.
func containsLine(content, line string) bool {
	for _, l := range strings.Split(content, "\n") {
		if l == line {
			return true
		}
	}
	return false
}
