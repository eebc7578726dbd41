package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxLineSize — предел размера одной записи (64 МБ).
// Записи содержат полное содержимое файлов, стандартного буфера
// bufio не хватает.
const maxLineSize = 64 * 1024 * 1024

// Record — одна запись JSONL файла.
type Record map[string]any

// String возвращает строковое значение поля ("" если нет или не строка).
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Int возвращает числовое значение поля (0 если нет).
// После json.Unmarshal числа приходят как float64.
func (r Record) Int(key string) int {
	switch n := r[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

// ForEach построчно читает JSONL файл и вызывает fn для каждой
// корректной записи. Некорректные строки пропускаются, их количество
// возвращается вторым значением. Ошибка fn прерывает чтение.
func ForEach(path string, fn func(Record) error) (skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open jsonl %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if jsonErr := json.Unmarshal([]byte(line), &rec); jsonErr != nil {
			skipped++
			continue
		}

		if err := fn(rec); err != nil {
			return skipped, err
		}
	}

	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("read jsonl %s: %w", path, err)
	}
	return skipped, nil
}

// ReadAll читает все корректные записи файла в память.
func ReadAll(path string) ([]Record, int, error) {
	var records []Record
	skipped, err := ForEach(path, func(rec Record) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, skipped, err
	}
	return records, skipped, nil
}

// Count возвращает количество непустых строк файла.
func Count(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open jsonl %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	count := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	return count, scanner.Err()
}

// Writer — построчная запись JSONL файла.
type Writer struct {
	f  *os.File
	bw *bufio.Writer
	n  int
}

// NewWriter создаёт файл (и родительские каталоги) для записи.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create jsonl %s: %w", path, err)
	}

	return &Writer{f: f, bw: bufio.NewWriter(f)}, nil
}

// Write сериализует запись и добавляет её строкой в файл.
func (w *Writer) Write(rec any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if _, err := w.bw.Write(data); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}

	w.n++
	return nil
}

// Count возвращает количество записанных записей.
func (w *Writer) Count() int {
	return w.n
}

// Close сбрасывает буфер и закрывает файл.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
