package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/repodp/repodp/internal/domain"
)

// RegistryFileName — имя файла реестра в рабочем каталоге.
const RegistryFileName = "repositories.json"

// Manager управляет реестром репозиториев.
//
// Удалённые репозитории клонируются в <workdir>/repos/<name>;
// локальные регистрируются по существующему пути без копирования.
// Реестр хранится в JSON файле и переживает перезапуски.
type Manager struct {
	workDir string
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]*domain.Repository
}

// Config — конфигурация Manager.
type Config struct {
	// WorkDir — рабочий каталог инструмента.
	WorkDir string

	// Logger — логгер (default: slog.Default).
	Logger *slog.Logger
}

// NewManager создаёт Manager и загружает реестр, если он есть.
func NewManager(cfg Config) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		workDir: cfg.WorkDir,
		logger:  logger,
		entries: make(map[string]*domain.Repository),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// registryPath возвращает путь к файлу реестра.
func (m *Manager) registryPath() string {
	return filepath.Join(m.workDir, RegistryFileName)
}

// clonePath возвращает каталог рабочей копии для имени.
func (m *Manager) clonePath(name string) string {
	return filepath.Join(m.workDir, "repos", name)
}

// Add клонирует удалённый репозиторий и регистрирует его.
// Пустой branch означает ветку по умолчанию.
func (m *Manager) Add(ctx context.Context, name, url, branch string) (*domain.Repository, error) {
	if name == "" {
		return nil, ErrEmptyRepoName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrRepoExists, name)
	}

	path := m.clonePath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	opts := &git.CloneOptions{URL: url}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}

	m.logger.Info("cloning repository", "name", name, "url", url, "branch", branch)
	repo, err := git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		os.RemoveAll(path)
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}

	entry := &domain.Repository{
		Name:        name,
		URL:         url,
		Path:        path,
		Branch:      branch,
		LastUpdated: time.Now().UTC(),
	}
	if hash, err := headHash(repo); err == nil {
		entry.CommitHash = hash
	}

	m.entries[name] = entry
	if err := m.save(); err != nil {
		return nil, err
	}
	return entry, nil
}

// AddLocal регистрирует существующий локальный каталог.
// Каталог не обязан быть git-репозиторием.
func (m *Manager) AddLocal(name, path string) (*domain.Repository, error) {
	if name == "" {
		return nil, ErrEmptyRepoName
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("local path %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local path %s is not a directory", abs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrRepoExists, name)
	}

	entry := &domain.Repository{
		Name:        name,
		Path:        abs,
		Local:       true,
		LastUpdated: time.Now().UTC(),
	}
	if repo, err := git.PlainOpen(abs); err == nil {
		if hash, err := headHash(repo); err == nil {
			entry.CommitHash = hash
		}
	}

	m.entries[name] = entry
	if err := m.save(); err != nil {
		return nil, err
	}

	m.logger.Info("local repository registered", "name", name, "path", abs)
	return entry, nil
}

// Update подтягивает изменения удалённого репозитория.
// Для локальных репозиториев обновляется только зафиксированный commit.
func (m *Manager) Update(ctx context.Context, name string) (*domain.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, name)
	}

	repo, err := git.PlainOpen(entry.Path)
	if err != nil {
		if entry.Local {
			// Локальный каталог без git — обновлять нечего.
			entry.LastUpdated = time.Now().UTC()
			return entry, m.save()
		}
		return nil, fmt.Errorf("open %s: %w", entry.Path, err)
	}

	if !entry.Local {
		wt, err := repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("worktree %s: %w", entry.Path, err)
		}

		m.logger.Info("pulling repository", "name", name)
		err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil, fmt.Errorf("pull %s: %w", name, err)
		}
	}

	if hash, err := headHash(repo); err == nil {
		entry.CommitHash = hash
	}
	entry.LastUpdated = time.Now().UTC()
	return entry, m.save()
}

// Remove убирает репозиторий из реестра.
// deleteFiles дополнительно удаляет рабочую копию; локальные
// каталоги с диска не удаляются никогда.
func (m *Manager) Remove(name string, deleteFiles bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, name)
	}

	delete(m.entries, name)
	if err := m.save(); err != nil {
		return err
	}

	if deleteFiles && !entry.Local {
		if err := os.RemoveAll(entry.Path); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Path, err)
		}
	}

	m.logger.Info("repository removed", "name", name, "files_deleted", deleteFiles && !entry.Local)
	return nil
}

// Get возвращает репозиторий по имени.
func (m *Manager) Get(name string) (*domain.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRepoNotFound, name)
	}
	copied := *entry
	return &copied, nil
}

// List возвращает все репозитории в алфавитном порядке имён.
func (m *Manager) List() []*domain.Repository {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]*domain.Repository, 0, len(m.entries))
	for _, entry := range m.entries {
		copied := *entry
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// load читает реестр с диска; отсутствие файла — пустой реестр.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.registryPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read registry: %w", err)
	}

	var list []*domain.Repository
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse registry: %w", err)
	}
	for _, entry := range list {
		m.entries[entry.Name] = entry
	}
	return nil
}

// save пишет реестр на диск. Вызывается под mu.
func (m *Manager) save() error {
	list := make([]*domain.Repository, 0, len(m.entries))
	for _, entry := range m.entries {
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	if err := os.MkdirAll(m.workDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", m.workDir, err)
	}
	if err := os.WriteFile(m.registryPath(), data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// headHash возвращает hash HEAD коммита.
func headHash(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}
