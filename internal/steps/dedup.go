package steps

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/jsonl"
)

// Стратегии выбора сохраняемого экземпляра в группе дубликатов.
const (
	KeepFirst  = "first"
	KeepLast   = "last"
	KeepNewest = "newest"
	KeepOldest = "oldest"
)

// DedupStep — удаление дубликатов по содержимому.
//
// Группировка двухфазная: сперва по размеру (дёшево), затем внутри
// групп одинакового размера по хешу содержимого. Из каждой группы
// дубликатов остаётся один экземпляр согласно стратегии.
type DedupStep struct{}

// NewDedupStep создаёт шаг дедупликации.
func NewDedupStep() *DedupStep {
	return &DedupStep{}
}

// Kind возвращает вид шага.
func (s *DedupStep) Kind() domain.StepKind { return domain.KindCleaner }

// Method возвращает имя метода.
func (s *DedupStep) Method() string { return domain.MethodDeduplication }

// Execute читает записи из req.Input и пишет дедуплицированные в req.Output.
func (s *DedupStep) Execute(ctx context.Context, req *Request) (*Result, error) {
	records, err := requireInput(req)
	if err != nil {
		return nil, err
	}

	algorithm := paramString(req.Params, "hash_algorithm", "sha256")
	strategy := paramString(req.Params, "keep_strategy", KeepFirst)
	minSize := paramInt64(req.Params, "min_file_size", 0)

	if err := validateStrategy(strategy); err != nil {
		return nil, err
	}

	groups, singles := groupDuplicates(records, algorithm, minSize)

	kept := make([]jsonl.Record, 0, len(records))
	kept = append(kept, singles...)
	duplicateGroups := 0
	for _, group := range groups {
		if len(group) > 1 {
			duplicateGroups++
		}
		kept = append(kept, pickKept(group, strategy))
	}

	// Порядок записей исходного артефакта сохраняется.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Int("__order") < kept[j].Int("__order")
	})

	w, err := jsonl.NewWriter(req.Output)
	if err != nil {
		return nil, err
	}
	for _, rec := range kept {
		select {
		case <-ctx.Done():
			w.Close()
			return nil, ctx.Err()
		default:
		}

		delete(rec, "__order")
		if err := w.Write(rec); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return NewResult(map[string]any{
		"original_count":     len(records),
		"deduplicated_count": len(kept),
		"removed_count":      len(records) - len(kept),
		"duplicate_groups":   duplicateGroups,
		"keep_strategy":      strategy,
	}), nil
}

// DuplicateAnalysisStep — отчёт о группах дубликатов без изменения данных.
type DuplicateAnalysisStep struct{}

// NewDuplicateAnalysisStep создаёт шаг анализа дубликатов.
func NewDuplicateAnalysisStep() *DuplicateAnalysisStep {
	return &DuplicateAnalysisStep{}
}

// Kind возвращает вид шага.
func (s *DuplicateAnalysisStep) Kind() domain.StepKind { return domain.KindAnalyzer }

// Method возвращает имя метода.
func (s *DuplicateAnalysisStep) Method() string { return domain.MethodDuplicateAnalysis }

// duplicateGroup — одна группа дубликатов в отчёте.
type duplicateGroup struct {
	Hash  string   `json:"hash"`
	Size  int64    `json:"size"`
	Count int      `json:"count"`
	Files []string `json:"files"`
}

// similarPair — пара почти одинаковых файлов в отчёте.
type similarPair struct {
	First      string  `json:"first"`
	Second     string  `json:"second"`
	Similarity float64 `json:"similarity"`
}

// Execute пишет JSON отчёт о дубликатах в req.Output.
func (s *DuplicateAnalysisStep) Execute(ctx context.Context, req *Request) (*Result, error) {
	records, err := requireInput(req)
	if err != nil {
		return nil, err
	}

	algorithm := paramString(req.Params, "hash_algorithm", "sha256")
	minSize := paramInt64(req.Params, "min_file_size", 0)
	threshold := paramFloat(req.Params, "similarity_threshold", 0)

	groups, singles := groupDuplicates(records, algorithm, minSize)

	report := struct {
		TotalRecords    int              `json:"total_records"`
		DuplicateGroups int              `json:"duplicate_groups"`
		DuplicateFiles  int              `json:"duplicate_files"`
		WastedBytes     int64            `json:"wasted_bytes"`
		Groups          []duplicateGroup `json:"groups"`
		SimilarPairs    []similarPair    `json:"similar_pairs"`
	}{
		TotalRecords: len(records),
		Groups:       []duplicateGroup{},
		SimilarPairs: []similarPair{},
	}

	for hash, group := range groups {
		if len(group) < 2 {
			continue
		}

		size := int64(group[0].Int("size"))
		g := duplicateGroup{
			Hash:  hash,
			Size:  size,
			Count: len(group),
		}
		for _, rec := range group {
			g.Files = append(g.Files, rec.String("path"))
		}
		sort.Strings(g.Files)

		report.DuplicateGroups++
		report.DuplicateFiles += len(group)
		report.WastedBytes += size * int64(len(group)-1)
		report.Groups = append(report.Groups, g)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].Hash < report.Groups[j].Hash
	})

	if threshold > 0 {
		pairs, err := findSimilarPairs(ctx, similarityCandidates(groups, singles), threshold)
		if err != nil {
			return nil, err
		}
		report.SimilarPairs = pairs
	}

	if err := writeJSON(req.Output, &report); err != nil {
		return nil, err
	}

	return NewResult(map[string]any{
		"total_records":    report.TotalRecords,
		"duplicate_groups": report.DuplicateGroups,
		"duplicate_files":  report.DuplicateFiles,
		"wasted_bytes":     report.WastedBytes,
		"similar_pairs":    len(report.SimilarPairs),
	}), nil
}

// similarityCandidates собирает записи без точных дубликатов:
// одиночные хеш-группы и записи вне группировки, кроме бинарных
// и пустых. Порядок исходного артефакта сохраняется.
func similarityCandidates(groups map[string][]jsonl.Record, singles []jsonl.Record) []jsonl.Record {
	var candidates []jsonl.Record
	for _, group := range groups {
		if len(group) == 1 {
			candidates = append(candidates, group[0])
		}
	}
	candidates = append(candidates, singles...)

	filtered := candidates[:0]
	for _, rec := range candidates {
		if rec["is_binary"] == true || rec.String("content") == "" {
			continue
		}
		filtered = append(filtered, rec)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Int("__order") < filtered[j].Int("__order")
	})
	return filtered
}

// findSimilarPairs попарно сравнивает кандидатов по построчной
// схожести и возвращает пары не ниже порога.
func findSimilarPairs(ctx context.Context, candidates []jsonl.Record, threshold float64) ([]similarPair, error) {
	pairs := []similarPair{}
	for i := 0; i < len(candidates); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		first := strings.Split(candidates[i].String("content"), "\n")
		for j := i + 1; j < len(candidates); j++ {
			second := strings.Split(candidates[j].String("content"), "\n")
			if s := lineSimilarity(first, second); s >= threshold {
				pairs = append(pairs, similarPair{
					First:      candidates[i].String("path"),
					Second:     candidates[j].String("path"),
					Similarity: s,
				})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].First != pairs[j].First {
			return pairs[i].First < pairs[j].First
		}
		return pairs[i].Second < pairs[j].Second
	})
	return pairs, nil
}

// lineSimilarity возвращает долю наибольшей общей подпоследовательности
// строк от длины большего файла (0..1).
func lineSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return float64(prev[len(b)]) / float64(longest)
}

// requireInput загружает входной артефакт шага, помечая записи
// порядковым номером для стабильной сортировки.
func requireInput(req *Request) ([]jsonl.Record, error) {
	if req.Input == "" {
		return nil, fmt.Errorf("%w: no input for output %s", ErrMissingInput, req.Output)
	}
	if _, err := os.Stat(req.Input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, req.Input)
	}

	records, _, err := jsonl.ReadAll(req.Input)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		rec["__order"] = i
	}
	return records, nil
}

// groupDuplicates группирует записи: ключ — хеш содержимого,
// значения — записи с одинаковым размером и хешем. Записи меньше
// minSize и бинарные возвращаются отдельно (singles) без группировки.
func groupDuplicates(records []jsonl.Record, algorithm string, minSize int64) (map[string][]jsonl.Record, []jsonl.Record) {
	bySize := make(map[int64][]jsonl.Record)
	var singles []jsonl.Record

	for _, rec := range records {
		size := int64(rec.Int("size"))
		if size < minSize || rec["is_binary"] == true {
			singles = append(singles, rec)
			continue
		}
		bySize[size] = append(bySize[size], rec)
	}

	groups := make(map[string][]jsonl.Record)
	for _, sameSize := range bySize {
		if len(sameSize) == 1 {
			singles = append(singles, sameSize[0])
			continue
		}
		for _, rec := range sameSize {
			h := contentHash(rec, algorithm)
			groups[h] = append(groups[h], rec)
		}
	}
	return groups, singles
}

// contentHash возвращает хеш текущего содержимого записи. Поле hash
// записи не используется: после очистки содержимого оно устаревает.
func contentHash(rec jsonl.Record, algorithm string) string {
	content := rec.String("content")

	if algorithm == "md5" {
		sum := md5.Sum([]byte(content))
		return hex.EncodeToString(sum[:])
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// pickKept выбирает сохраняемый экземпляр группы согласно стратегии.
func pickKept(group []jsonl.Record, strategy string) jsonl.Record {
	if len(group) == 1 {
		return group[0]
	}

	switch strategy {
	case KeepLast:
		return group[len(group)-1]
	case KeepNewest:
		return pickByTime(group, true)
	case KeepOldest:
		return pickByTime(group, false)
	}
	return group[0]
}

// pickByTime выбирает запись по времени модификации.
// Записи без parseable modified_at проигрывают любым с ним.
func pickByTime(group []jsonl.Record, newest bool) jsonl.Record {
	best := group[0]
	bestTime, bestOK := parseModified(best)

	for _, rec := range group[1:] {
		t, ok := parseModified(rec)
		if !ok {
			continue
		}
		if !bestOK || (newest && t.After(bestTime)) || (!newest && t.Before(bestTime)) {
			best, bestTime, bestOK = rec, t, true
		}
	}
	return best
}

func parseModified(rec jsonl.Record) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, rec.String("modified_at"))
	return t, err == nil
}

// validateStrategy проверяет стратегию на принадлежность закрытому набору.
func validateStrategy(strategy string) error {
	switch strategy {
	case KeepFirst, KeepLast, KeepNewest, KeepOldest:
		return nil
	}
	return fmt.Errorf("%w: unknown keep strategy %q", ErrInvalidParams, strategy)
}

// writeJSON пишет отчёт анализатора одним JSON документом.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
