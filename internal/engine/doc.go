// Package engine содержит граф зависимостей pipeline.
//
// Включает:
//   - dag.go      — построение графа, топологическая сортировка, поиск циклов
//   - validate.go — валидация pipeline до выполнения
//   - dryrun.go   — симуляция выполнения без вызова шагов
//
// Engine отвечает за понимание структуры pipeline и определение
// порядка выполнения шагов на основе их зависимостей.
package engine
