// Package batch выполняет пайплайн для набора репозиториев.
//
// Orchestrator раздаёт репозитории пулу воркеров; каждый репозиторий
// обрабатывается изолированно собственным executor.Executor. После
// завершения всех прогонов одноимённые JSONL артефакты успешных
// шагов сшиваются в общие файлы с пометкой source_repo.
package batch
