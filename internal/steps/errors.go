package steps

import "errors"

// Ошибки шагов.
var (
	// ErrUnsupportedMethod — метод не входит в закрытый набор реализаций.
	ErrUnsupportedMethod = errors.New("unsupported step method")

	// ErrMissingInput — шагу требуется входной артефакт, но он не задан
	// или отсутствует на диске.
	ErrMissingInput = errors.New("step input artifact is missing")

	// ErrInvalidParams — невалидные параметры шага.
	ErrInvalidParams = errors.New("invalid step params")
)
