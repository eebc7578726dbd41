// Package cli содержит команды инструмента repodp.
//
// Команды работают in-process, без сервера: загружают конфигурацию,
// открывают реестр репозиториев и историю прогонов напрямую.
// Вывод — таблицы tabwriter либо JSON (--json).
package cli
