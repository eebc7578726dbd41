package jsonl

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestForEach_SkipsMalformedLines(t *testing.T) {
	path := writeFile(t, "mixed.jsonl",
		`{"name":"a.go","size":10}
not json at all
{"name":"b.go","size":20}

{broken
{"name":"c.go","size":30}
`)

	var names []string
	skipped, err := ForEach(path, func(rec Record) error {
		names = append(names, rec.String("name"))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(names) != 3 || names[0] != "a.go" || names[2] != "c.go" {
		t.Errorf("unexpected records: %v", names)
	}
}

func TestReadAll(t *testing.T) {
	path := writeFile(t, "ok.jsonl", `{"name":"x","size":5}
{"name":"y","size":7}
`)

	records, skipped, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[1].Int("size") != 7 {
		t.Errorf("size = %d, want 7", records[1].Int("size"))
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "data.jsonl")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, rec := range []Record{
		{"name": "a.go"},
		{"name": "b.go"},
	} {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if w.Count() != 2 {
		t.Errorf("Count = %d, want 2", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	n, err := Count(path)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("file line count = %d, want 2", n)
	}
}

func TestForEach_MissingFile(t *testing.T) {
	if _, err := ForEach(filepath.Join(t.TempDir(), "nope.jsonl"), func(Record) error { return nil }); err == nil {
		t.Fatal("expected error for missing file")
	}
}
