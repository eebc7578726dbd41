package steps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/jsonl"
)

// FileRecord — запись об одном файле репозитория.
type FileRecord struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Extension  string `json:"extension"`
	Size       int64  `json:"size"`
	Hash       string `json:"hash"`
	Content    string `json:"content"`
	Lines      int    `json:"lines"`
	Language   string `json:"language"`
	IsBinary   bool   `json:"is_binary"`
	ModifiedAt string `json:"modified_at"`
	SourceRepo string `json:"source_repo,omitempty"`
}

// ExtractStep — извлечение файлов репозитория в JSONL артефакт.
//
// Обходит рабочую копию, фильтрует по расширениям, исключённым
// каталогам и шаблонам имён, отбрасывает слишком большие файлы
// и пишет по записи на файл.
type ExtractStep struct{}

// NewExtractStep создаёт шаг извлечения.
func NewExtractStep() *ExtractStep {
	return &ExtractStep{}
}

// Kind возвращает вид шага.
func (s *ExtractStep) Kind() domain.StepKind { return domain.KindExtractor }

// Method возвращает имя метода.
func (s *ExtractStep) Method() string { return domain.MethodFileExtraction }

// Execute обходит репозиторий и пишет записи в req.Output.
func (s *ExtractStep) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req.RepoPath == "" {
		return nil, fmt.Errorf("%w: repo path is empty", ErrInvalidParams)
	}
	if _, err := os.Stat(req.RepoPath); err != nil {
		return nil, fmt.Errorf("repo path %s: %w", req.RepoPath, err)
	}

	fileTypes := toSet(paramStringSlice(req.Params, "file_types"))
	excludeDirs := toSet(paramStringSlice(req.Params, "exclude_dirs"))
	excludeFiles := paramStringSlice(req.Params, "exclude_files")
	maxFileSize := paramInt64(req.Params, "max_file_size", 0)

	w, err := jsonl.NewWriter(req.Output)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	var scanned, extracted, skipped, binary int
	var totalBytes int64

	walkErr := filepath.WalkDir(req.RepoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if excludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		scanned++

		ext := strings.ToLower(filepath.Ext(path))
		if len(fileTypes) > 0 && !fileTypes[ext] {
			skipped++
			return nil
		}
		if matchesAny(d.Name(), excludeFiles) {
			skipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if maxFileSize > 0 && info.Size() > maxFileSize {
			skipped++
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, err := filepath.Rel(req.RepoPath, path)
		if err != nil {
			return err
		}

		rec := FileRecord{
			Path:       filepath.ToSlash(rel),
			Name:       d.Name(),
			Extension:  ext,
			Size:       info.Size(),
			Language:   detectLanguage(path),
			ModifiedAt: info.ModTime().UTC().Format(time.RFC3339),
		}

		if isBinary(content) {
			// Содержимое бинарных файлов не сохраняем,
			// запись остаётся для учёта.
			rec.IsBinary = true
			binary++
		} else {
			sum := sha256.Sum256(content)
			rec.Hash = hex.EncodeToString(sum[:])
			rec.Content = string(content)
			rec.Lines = countLines(rec.Content)
		}

		if err := w.Write(&rec); err != nil {
			return err
		}

		extracted++
		totalBytes += info.Size()
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", req.RepoPath, walkErr)
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return NewResult(map[string]any{
		"files_scanned":   scanned,
		"files_extracted": extracted,
		"files_skipped":   skipped,
		"binary_files":    binary,
		"total_bytes":     totalBytes,
	}), nil
}

// countLines считает строки содержимого.
func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// matchesAny проверяет имя файла по glob-шаблонам.
func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// toSet строит множество из списка строк.
func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
