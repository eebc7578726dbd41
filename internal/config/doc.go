// Package config содержит конфигурацию инструмента: глобальные
// настройки, описания пайплайнов и их сборку в доменные структуры.
//
// Источники значений (в порядке возрастания приоритета):
//   - значения по умолчанию (Default)
//   - YAML файл конфигурации
//   - переменные окружения REPODP_*
//
// Resolve собирает domain.Pipeline один раз: параметры шагов
// фиксируются в момент сборки и дальше не зависят от настроек.
package config
