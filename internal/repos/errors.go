package repos

import "errors"

// Ошибки менеджера репозиториев.
var (
	// ErrRepoNotFound — репозиторий не зарегистрирован.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrRepoExists — репозиторий с таким именем уже зарегистрирован.
	ErrRepoExists = errors.New("repository already exists")

	// ErrEmptyRepoName — имя репозитория не задано.
	ErrEmptyRepoName = errors.New("repository name is empty")
)
