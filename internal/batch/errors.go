package batch

import "errors"

// Ошибки пакетной обработки.
var (
	// ErrNoRepositories — пакетный прогон без репозиториев.
	ErrNoRepositories = errors.New("no repositories to process")

	// ErrDuplicateRepoName — два репозитория пакета с одним именем
	// затирали бы артефакты друг друга.
	ErrDuplicateRepoName = errors.New("duplicate repository name in batch")
)
