// repodp — инструмент подготовки датасетов из git-репозиториев.
//
// Использование:
//
//	repodp [--config FILE] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	repo      Управление реестром репозиториев
//	pipeline  Просмотр, валидация и запуск пайплайнов
//	batch     Пакетная обработка и запуск по расписанию
//	history   История прогонов
//	config    Работа с конфигурацией
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/repodp/repodp/internal/cli"
	"github.com/repodp/repodp/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &cli.App{}

	rootCmd := &cobra.Command{
		Use:           "repodp",
		Short:         "repodp — repository data processing tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			telemetry.SetupLogger()
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config file (default: ./repodp.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&app.JSONOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(
		cli.NewRepoCmd(app),
		cli.NewPipelineCmd(app),
		cli.NewBatchCmd(app),
		cli.NewHistoryCmd(app),
		cli.NewConfigCmd(app),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
