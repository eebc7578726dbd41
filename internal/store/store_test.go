package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/repodp/repodp/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(repoName string, success bool) *domain.ExecutionReport {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.ExecutionReport{
		RunID:          uuid.New(),
		PipelineName:   "standard",
		RepoName:       repoName,
		StartedAt:      now.Add(-time.Minute),
		EndedAt:        now,
		CompletedSteps: []string{"extract"},
		StepResults: map[string]*domain.StepResult{
			"extract": {StepName: "extract", Status: domain.StepStatusSucceeded},
		},
		OverallSuccess: success,
	}
}

func TestSaveRun_GetRun(t *testing.T) {
	s := openTestStore(t)
	report := sampleReport("alpha", true)

	if err := s.SaveRun(report); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(report.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.RepoName != "alpha" || !got.OverallSuccess {
		t.Errorf("report = %+v", got)
	}
	if got.StepResults["extract"].Status != domain.StepStatusSucceeded {
		t.Errorf("step result lost on round trip")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRun(uuid.New()); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("err = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns_FilterAndOrder(t *testing.T) {
	s := openTestStore(t)

	older := sampleReport("alpha", true)
	older.StartedAt = older.StartedAt.Add(-time.Hour)
	newer := sampleReport("alpha", false)
	other := sampleReport("beta", true)

	for _, r := range []*domain.ExecutionReport{older, newer, other} {
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	all, err := s.ListRuns("", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}

	alpha, err := s.ListRuns("alpha", 10)
	if err != nil {
		t.Fatalf("ListRuns(alpha): %v", err)
	}
	if len(alpha) != 2 {
		t.Fatalf("len(alpha) = %d, want 2", len(alpha))
	}
	// Новые прогоны первыми.
	if alpha[0].RunID != newer.RunID {
		t.Errorf("first run = %s, want newest", alpha[0].RunID)
	}

	limited, err := s.ListRuns("", 1)
	if err != nil {
		t.Fatalf("ListRuns limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

func TestSaveBatch_SavesNestedRuns(t *testing.T) {
	s := openTestStore(t)

	alpha := sampleReport("alpha", true)
	beta := sampleReport("beta", false)
	batch := &domain.BatchReport{
		BatchID:        uuid.New(),
		PipelineName:   "standard",
		Repositories:   []string{"alpha", "beta"},
		StartedAt:      time.Now().UTC().Add(-2 * time.Minute),
		EndedAt:        time.Now().UTC(),
		Reports:        map[string]*domain.ExecutionReport{"alpha": alpha, "beta": beta},
		SucceededCount: 1,
		FailedCount:    1,
	}

	if err := s.SaveBatch(batch); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	// Прогоны репозиториев доступны и по отдельности.
	if _, err := s.GetRun(alpha.RunID); err != nil {
		t.Errorf("alpha run: %v", err)
	}
	if _, err := s.GetRun(beta.RunID); err != nil {
		t.Errorf("beta run: %v", err)
	}

	runs, err := s.ListRuns("", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("len(runs) = %d, want 2", len(runs))
	}
}
