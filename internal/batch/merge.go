package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/repodp/repodp/internal/domain"
	"github.com/repodp/repodp/internal/jsonl"
)

// MergeArtifacts сшивает одноимённые JSONL артефакты успешных
// репозиториев в общие файлы mergeDir/<step>_merged.jsonl.
//
// Каждая запись помечается полем source_repo. Артефакты анализаторов
// (единые JSON документы) не сшиваются. Некорректные строки исходных
// файлов пропускаются и учитываются в сводке.
func MergeArtifacts(p *domain.Pipeline, report *domain.BatchReport, mergeDir string, logger *slog.Logger) (map[string]*domain.MergeSummary, error) {
	merged := make(map[string]*domain.MergeSummary)

	for i := range p.Steps {
		spec := &p.Steps[i]
		if spec.Kind == domain.KindAnalyzer {
			continue
		}

		// Артефакты шага из успешных прогонов, в устойчивом порядке.
		type source struct {
			repo string
			path string
		}
		var sources []source
		for repoName, repoReport := range report.Reports {
			result := repoReport.StepResults[spec.Name]
			if result == nil || result.Status != domain.StepStatusSucceeded {
				continue
			}
			sources = append(sources, source{repo: repoName, path: result.OutputArtifact})
		}
		if len(sources) == 0 {
			continue
		}
		sort.Slice(sources, func(i, j int) bool { return sources[i].repo < sources[j].repo })

		outPath := filepath.Join(mergeDir, spec.Name+"_merged.jsonl")
		w, err := jsonl.NewWriter(outPath)
		if err != nil {
			return nil, err
		}

		summary := &domain.MergeSummary{
			StepName:        spec.Name,
			MergedFilePath:  outPath,
			SourceRepoCount: len(sources),
		}

		for _, src := range sources {
			skipped, err := jsonl.ForEach(src.path, func(rec jsonl.Record) error {
				rec["source_repo"] = src.repo
				return w.Write(rec)
			})
			if errors.Is(err, fs.ErrNotExist) {
				// Пропавший исходный артефакт не срывает сшивку остальных.
				logger.Warn("source artifact missing",
					"step", spec.Name, "repository", src.repo, "path", src.path)
				summary.SourceRepoCount--
				continue
			}
			if err != nil {
				w.Close()
				return nil, fmt.Errorf("merge %s from %s: %w", spec.Name, src.repo, err)
			}
			summary.SkippedRecords += skipped
		}

		if err := w.Close(); err != nil {
			return nil, err
		}
		summary.TotalRecords = w.Count()
		merged[spec.Name] = summary

		logger.Info("artifacts merged",
			"step", spec.Name,
			"repositories", summary.SourceRepoCount,
			"records", summary.TotalRecords,
			"skipped", summary.SkippedRecords,
		)
	}

	return merged, nil
}
