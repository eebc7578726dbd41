package cli

import (
	"os"
	"path/filepath"

	"github.com/repodp/repodp/internal/config"
	"github.com/repodp/repodp/internal/repos"
	"github.com/repodp/repodp/internal/store"
)

// DefaultConfigFile — имя файла конфигурации по умолчанию.
const DefaultConfigFile = "repodp.yaml"

// App — разделяемые зависимости команд CLI.
//
// Команды работают in-process: конфигурация, реестр репозиториев
// и история прогонов открываются лениво, по первому обращению.
type App struct {
	// ConfigPath — путь к файлу конфигурации (--config).
	ConfigPath string

	// JSONOutput — выводить данные в JSON (--json).
	JSONOutput bool
}

// Output возвращает форматтер вывода согласно флагам.
func (a *App) Output() *Output {
	return NewOutput(a.JSONOutput)
}

// configPath возвращает действующий путь конфигурации:
// флаг --config, иначе repodp.yaml в текущем каталоге, если он есть.
func (a *App) configPath() string {
	if a.ConfigPath != "" {
		return a.ConfigPath
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// Config загружает конфигурацию.
func (a *App) Config() (*config.Config, error) {
	return config.Load(a.configPath())
}

// Repos открывает менеджер репозиториев в рабочем каталоге cfg.
func (a *App) Repos(cfg *config.Config) (*repos.Manager, error) {
	return repos.NewManager(repos.Config{WorkDir: cfg.Settings.WorkDir})
}

// Store открывает историю прогонов в рабочем каталоге cfg.
func (a *App) Store(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.Settings.WorkDir, 0o755); err != nil {
		return nil, err
	}
	return store.Open(filepath.Join(cfg.Settings.WorkDir, "history.db"))
}

// OutputDir возвращает каталог результатов: флаг --output или
// <workdir>/output.
func (a *App) OutputDir(cfg *config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(cfg.Settings.WorkDir, "output")
}
