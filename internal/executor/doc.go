// Package executor выполняет пайплайн для одного репозитория.
//
// Executor обходит шаги в топологическом порядке, передаёт артефакты
// между шагами через реестр выходов и фиксирует результат каждого
// шага в ExecutionReport. Runner запускает реализации методов из
// пакета steps; интерфейс StepRunner позволяет подменять его в тестах.
package executor
