package steps

import (
	"context"
	"sort"
	"strings"

	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/jsonl"
)

// contentMetrics — метрики содержимого одной записи.
type contentMetrics struct {
	LineCount         int     `json:"line_count"`
	MaxLineLength     int     `json:"max_line_length"`
	AvgLineLength     float64 `json:"avg_line_length"`
	Size              int64   `json:"size"`
	DigitPercentage   float64 `json:"digit_percentage"`
	HexPercentage     float64 `json:"hex_percentage"`
	CommentPercentage float64 `json:"comment_percentage"`
}

// thresholds — пороговые значения фильтрации.
type thresholds struct {
	maxLineCount  int
	maxLineLength int
	maxFileSize   int64
	maxDigitPct   float64
	maxHexPct     float64
	maxCommentPct float64
	maxAvgLineLen float64
}

func thresholdsFromParams(params map[string]any) thresholds {
	return thresholds{
		maxLineCount:  paramInt(params, "max_line_count", 0),
		maxLineLength: paramInt(params, "max_line_length", 0),
		maxFileSize:   paramInt64(params, "max_file_size", 0),
		maxDigitPct:   paramFloat(params, "max_digit_percentage", 0),
		maxHexPct:     paramFloat(params, "max_hex_percentage", 0),
		maxCommentPct: paramFloat(params, "max_comment_percentage", 0),
		maxAvgLineLen: paramFloat(params, "max_average_line_length", 0),
	}
}

// violation возвращает имя первого нарушенного порога ("" если нет).
// Нулевой порог означает отсутствие ограничения.
func (t thresholds) violation(m contentMetrics) string {
	switch {
	case t.maxLineCount > 0 && m.LineCount > t.maxLineCount:
		return "max_line_count"
	case t.maxLineLength > 0 && m.MaxLineLength > t.maxLineLength:
		return "max_line_length"
	case t.maxFileSize > 0 && m.Size > t.maxFileSize:
		return "max_file_size"
	case t.maxDigitPct > 0 && m.DigitPercentage > t.maxDigitPct:
		return "max_digit_percentage"
	case t.maxHexPct > 0 && m.HexPercentage > t.maxHexPct:
		return "max_hex_percentage"
	case t.maxCommentPct > 0 && m.CommentPercentage > t.maxCommentPct:
		return "max_comment_percentage"
	case t.maxAvgLineLen > 0 && m.AvgLineLength > t.maxAvgLineLen:
		return "max_average_line_length"
	}
	return ""
}

// computeMetrics считает метрики содержимого. Язык нужен для подсчёта
// доли строк-комментариев; для языков вне таблицы она равна нулю.
func computeMetrics(content string, size int64, language string) contentMetrics {
	m := contentMetrics{Size: size}
	if content == "" {
		return m
	}

	syntax, hasSyntax := commentSyntaxByLanguage[language]

	lines := strings.Split(content, "\n")
	var totalLen, commentLines int
	for _, line := range lines {
		if len(line) > m.MaxLineLength {
			m.MaxLineLength = len(line)
		}
		totalLen += len(line)

		if hasSyntax && isLineComment(strings.TrimSpace(line), syntax.Line) {
			commentLines++
		}
	}
	m.LineCount = countLines(content)
	if len(lines) > 0 {
		m.AvgLineLength = float64(totalLen) / float64(len(lines))
		m.CommentPercentage = float64(commentLines) / float64(len(lines)) * 100
	}

	var digits, hexChars int
	for _, r := range content {
		switch {
		case r >= '0' && r <= '9':
			digits++
			hexChars++
		case (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F'):
			hexChars++
		}
	}
	total := len([]rune(content))
	if total > 0 {
		m.DigitPercentage = float64(digits) / float64(total) * 100
		m.HexPercentage = float64(hexChars) / float64(total) * 100
	}
	return m
}

// MetricsCleanStep — фильтрация записей по метрикам содержимого.
//
// Записи, нарушающие хотя бы один порог, отбрасываются: слишком
// длинные файлы и файлы с высокой долей цифр или hex-символов
// обычно оказываются сгенерированным кодом или данными.
type MetricsCleanStep struct{}

// NewMetricsCleanStep создаёт шаг фильтрации по метрикам.
func NewMetricsCleanStep() *MetricsCleanStep {
	return &MetricsCleanStep{}
}

// Kind возвращает вид шага.
func (s *MetricsCleanStep) Kind() domain.StepKind { return domain.KindCleaner }

// Method возвращает имя метода.
func (s *MetricsCleanStep) Method() string { return domain.MethodMetricsCleaning }

// Execute читает записи из req.Input и пишет прошедшие пороги в req.Output.
func (s *MetricsCleanStep) Execute(ctx context.Context, req *Request) (*Result, error) {
	records, err := requireInput(req)
	if err != nil {
		return nil, err
	}

	limits := thresholdsFromParams(req.Params)

	w, err := jsonl.NewWriter(req.Output)
	if err != nil {
		return nil, err
	}

	removedBy := make(map[string]int)
	kept := 0

	for _, rec := range records {
		select {
		case <-ctx.Done():
			w.Close()
			return nil, ctx.Err()
		default:
		}

		delete(rec, "__order")

		if rec["is_binary"] != true {
			m := computeMetrics(rec.String("content"), int64(rec.Int("size")), rec.String("language"))
			if reason := limits.violation(m); reason != "" {
				removedBy[reason]++
				continue
			}
		}

		if err := w.Write(rec); err != nil {
			w.Close()
			return nil, err
		}
		kept++
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	removed := len(records) - kept
	return NewResult(map[string]any{
		"original_count": len(records),
		"kept_count":     kept,
		"removed_count":  removed,
		"removed_by":     removedBy,
	}), nil
}

// MetricsAnalysisStep — сводный отчёт о метриках корпуса.
type MetricsAnalysisStep struct{}

// NewMetricsAnalysisStep создаёт шаг анализа метрик.
func NewMetricsAnalysisStep() *MetricsAnalysisStep {
	return &MetricsAnalysisStep{}
}

// Kind возвращает вид шага.
func (s *MetricsAnalysisStep) Kind() domain.StepKind { return domain.KindAnalyzer }

// Method возвращает имя метода.
func (s *MetricsAnalysisStep) Method() string { return domain.MethodMetricsAnalysis }

// languageStat — агрегат по одному языку.
type languageStat struct {
	Language string `json:"language"`
	Files    int    `json:"files"`
	Lines    int    `json:"lines"`
	Bytes    int64  `json:"bytes"`
}

// Execute пишет JSON отчёт с агрегатами по корпусу в req.Output.
func (s *MetricsAnalysisStep) Execute(ctx context.Context, req *Request) (*Result, error) {
	records, err := requireInput(req)
	if err != nil {
		return nil, err
	}

	limits := thresholdsFromParams(req.Params)

	byLanguage := make(map[string]*languageStat)
	violations := make(map[string]int)

	var totalLines, maxLineLength int
	var totalBytes int64
	var sumAvgLineLen, sumDigitPct, sumHexPct, sumCommentPct float64
	analyzed := 0

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if rec["is_binary"] == true {
			continue
		}

		m := computeMetrics(rec.String("content"), int64(rec.Int("size")), rec.String("language"))
		analyzed++

		totalLines += m.LineCount
		totalBytes += m.Size
		if m.MaxLineLength > maxLineLength {
			maxLineLength = m.MaxLineLength
		}
		sumAvgLineLen += m.AvgLineLength
		sumDigitPct += m.DigitPercentage
		sumHexPct += m.HexPercentage
		sumCommentPct += m.CommentPercentage

		if reason := limits.violation(m); reason != "" {
			violations[reason]++
		}

		lang := rec.String("language")
		stat := byLanguage[lang]
		if stat == nil {
			stat = &languageStat{Language: lang}
			byLanguage[lang] = stat
		}
		stat.Files++
		stat.Lines += m.LineCount
		stat.Bytes += m.Size
	}

	languages := make([]languageStat, 0, len(byLanguage))
	for _, stat := range byLanguage {
		languages = append(languages, *stat)
	}
	sort.Slice(languages, func(i, j int) bool {
		if languages[i].Files != languages[j].Files {
			return languages[i].Files > languages[j].Files
		}
		return languages[i].Language < languages[j].Language
	})

	report := struct {
		TotalRecords         int            `json:"total_records"`
		AnalyzedRecords      int            `json:"analyzed_records"`
		TotalLines           int            `json:"total_lines"`
		TotalBytes           int64          `json:"total_bytes"`
		MaxLineLength        int            `json:"max_line_length"`
		AvgLineLength        float64        `json:"avg_line_length"`
		AvgDigitPercentage   float64        `json:"avg_digit_percentage"`
		AvgHexPercentage     float64        `json:"avg_hex_percentage"`
		AvgCommentPercentage float64        `json:"avg_comment_percentage"`
		ThresholdHits        map[string]int `json:"threshold_hits"`
		Languages            []languageStat `json:"languages"`
	}{
		TotalRecords:    len(records),
		AnalyzedRecords: analyzed,
		TotalLines:      totalLines,
		TotalBytes:      totalBytes,
		MaxLineLength:   maxLineLength,
		ThresholdHits:   violations,
		Languages:       languages,
	}
	if analyzed > 0 {
		report.AvgLineLength = sumAvgLineLen / float64(analyzed)
		report.AvgDigitPercentage = sumDigitPct / float64(analyzed)
		report.AvgHexPercentage = sumHexPct / float64(analyzed)
		report.AvgCommentPercentage = sumCommentPct / float64(analyzed)
	}

	if err := writeJSON(req.Output, &report); err != nil {
		return nil, err
	}

	return NewResult(map[string]any{
		"total_records":    report.TotalRecords,
		"analyzed_records": report.AnalyzedRecords,
		"total_lines":      report.TotalLines,
		"total_bytes":      report.TotalBytes,
		"languages":        len(report.Languages),
	}), nil
}
