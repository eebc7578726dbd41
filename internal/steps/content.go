package steps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/jsonl"
)

// ContentCleanStep — очистка содержимого записей.
//
// Убирает комментарии, строки импорта, пустые строки и хвостовые
// пробелы в зависимости от параметров и языка записи. Поля size,
// lines и hash пересчитываются после очистки.
type ContentCleanStep struct{}

// NewContentCleanStep создаёт шаг очистки содержимого.
func NewContentCleanStep() *ContentCleanStep {
	return &ContentCleanStep{}
}

// Kind возвращает вид шага.
func (s *ContentCleanStep) Kind() domain.StepKind { return domain.KindCleaner }

// Method возвращает имя метода.
func (s *ContentCleanStep) Method() string { return domain.MethodContentCleaning }

// cleanOptions — параметры очистки одной записи.
type cleanOptions struct {
	removeComments      bool
	removeBlankLines    bool
	removeImports       bool
	normalizeWhitespace bool
}

// Execute читает записи из req.Input, чистит содержимое и пишет в req.Output.
func (s *ContentCleanStep) Execute(ctx context.Context, req *Request) (*Result, error) {
	records, err := requireInput(req)
	if err != nil {
		return nil, err
	}

	opts := cleanOptions{
		removeComments:      paramBool(req.Params, "remove_comments", true),
		removeBlankLines:    paramBool(req.Params, "remove_blank_lines", true),
		removeImports:       paramBool(req.Params, "remove_imports", false),
		normalizeWhitespace: paramBool(req.Params, "normalize_whitespace", true),
	}

	w, err := jsonl.NewWriter(req.Output)
	if err != nil {
		return nil, err
	}

	var processed, linesRemoved int
	var bytesRemoved int64

	for _, rec := range records {
		select {
		case <-ctx.Done():
			w.Close()
			return nil, ctx.Err()
		default:
		}

		delete(rec, "__order")

		if rec["is_binary"] != true {
			before := rec.String("content")
			beforeLines := countLines(before)

			after := cleanContent(before, rec.String("language"), opts)

			rec["content"] = after
			rec["lines"] = countLines(after)
			rec["size"] = len(after)
			if rec.String("hash") != "" {
				sum := sha256.Sum256([]byte(after))
				rec["hash"] = hex.EncodeToString(sum[:])
			}

			linesRemoved += beforeLines - countLines(after)
			bytesRemoved += int64(len(before) - len(after))
			processed++
		}

		if err := w.Write(rec); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return NewResult(map[string]any{
		"records_processed": processed,
		"records_total":     len(records),
		"lines_removed":     linesRemoved,
		"bytes_removed":     bytesRemoved,
	}), nil
}

// cleanContent чистит содержимое одной записи.
func cleanContent(content, language string, opts cleanOptions) string {
	syntax, hasSyntax := commentSyntaxByLanguage[language]

	if opts.removeComments && hasSyntax && syntax.BlockStart != "" {
		content = stripBlockComments(content, syntax.BlockStart, syntax.BlockEnd)
	}

	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if opts.removeComments && hasSyntax && isLineComment(trimmed, syntax.Line) {
			continue
		}
		if opts.removeImports && isImportLine(trimmed, language) {
			continue
		}
		if opts.normalizeWhitespace {
			line = strings.TrimRight(line, " \t")
		}
		if opts.removeBlankLines && strings.TrimSpace(line) == "" {
			continue
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

// stripBlockComments вырезает блочные комментарии.
// Строковые литералы не разбираются, очистка эвристическая.
func stripBlockComments(content, start, end string) string {
	var b strings.Builder
	for {
		from := strings.Index(content, start)
		if from < 0 {
			b.WriteString(content)
			break
		}
		to := strings.Index(content[from+len(start):], end)
		if to < 0 {
			b.WriteString(content[:from])
			break
		}
		b.WriteString(content[:from])
		content = content[from+len(start)+to+len(end):]
	}
	return b.String()
}

// isLineComment проверяет, что строка целиком является комментарием.
func isLineComment(trimmed string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// isImportLine проверяет, что строка является импортом для языка.
func isImportLine(trimmed, language string) bool {
	for _, prefix := range importPrefixesByLanguage[language] {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
