package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/repodp/repodp/internal/domain"
)

// ErrRunNotFound — прогон с таким ID отсутствует в истории.
var ErrRunNotFound = errors.New("run not found")

// Store — история прогонов в SQLite.
//
// Полные отчёты хранятся JSON документами, сводные поля вынесены
// в колонки для выборок и фильтрации.
type Store struct {
	db *sql.DB
}

// Open открывает (или создаёт) базу истории и применяет схему.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		repository TEXT NOT NULL,
		success INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		report TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		repo_count INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		report TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON runs(pipeline);
	CREATE INDEX IF NOT EXISTS idx_runs_repository ON runs(repository);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunSummary — сводная строка истории прогонов.
type RunSummary struct {
	RunID     uuid.UUID `json:"run_id"`
	Pipeline  string    `json:"pipeline"`
	RepoName  string    `json:"repository"`
	Success   bool      `json:"success"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// SaveRun сохраняет отчёт одиночного прогона.
func (s *Store) SaveRun(report *domain.ExecutionReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO runs (id, pipeline, repository, success, started_at, ended_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID.String(),
		report.PipelineName,
		report.RepoName,
		report.OverallSuccess,
		report.StartedAt,
		report.EndedAt,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// SaveBatch сохраняет сводный отчёт пакетного прогона и все
// входящие в него прогоны репозиториев.
func (s *Store) SaveBatch(report *domain.BatchReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal batch report: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO batches (id, pipeline, repo_count, succeeded, failed, started_at, ended_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.BatchID.String(),
		report.PipelineName,
		len(report.Repositories),
		report.SucceededCount,
		report.FailedCount,
		report.StartedAt,
		report.EndedAt,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("save batch: %w", err)
	}

	for _, repoReport := range report.Reports {
		repoData, err := json.Marshal(repoReport)
		if err != nil {
			return fmt.Errorf("marshal repo report: %w", err)
		}
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO runs (id, pipeline, repository, success, started_at, ended_at, report)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			repoReport.RunID.String(),
			repoReport.PipelineName,
			repoReport.RepoName,
			repoReport.OverallSuccess,
			repoReport.StartedAt,
			repoReport.EndedAt,
			string(repoData),
		)
		if err != nil {
			return fmt.Errorf("save batch run: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns возвращает последние прогоны, новые первыми.
// Пустой repoName означает прогоны всех репозиториев.
func (s *Store) ListRuns(repoName string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, pipeline, repository, success, started_at, ended_at
		FROM runs`
	args := []any{}
	if repoName != "" {
		query += ` WHERE repository = ?`
		args = append(args, repoName)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var list []RunSummary
	for rows.Next() {
		var summary RunSummary
		var id string
		if err := rows.Scan(&id, &summary.Pipeline, &summary.RepoName,
			&summary.Success, &summary.StartedAt, &summary.EndedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if summary.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %s: %w", id, err)
		}
		list = append(list, summary)
	}
	return list, rows.Err()
}

// GetRun возвращает полный отчёт прогона по ID.
func (s *Store) GetRun(runID uuid.UUID) (*domain.ExecutionReport, error) {
	var data string
	err := s.db.QueryRow(`SELECT report FROM runs WHERE id = ?`, runID.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var report domain.ExecutionReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("parse run report: %w", err)
	}
	return &report, nil
}
