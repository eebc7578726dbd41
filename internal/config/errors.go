package config

import "errors"

// Ошибки конфигурации.
var (
	// ErrPipelineNotFound — запрошенный пайплайн отсутствует в конфигурации.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrEmptyPipelineName — имя пайплайна не задано.
	ErrEmptyPipelineName = errors.New("pipeline name is empty")
)
