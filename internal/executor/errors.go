package executor

import "errors"

// Ошибки исполнителя.
var (
	// ErrNilPipeline — исполнителю не передан пайплайн.
	ErrNilPipeline = errors.New("pipeline is nil")

	// ErrKindMismatch — вид шага в описании не совпадает с реализацией метода.
	ErrKindMismatch = errors.New("step kind does not match method implementation")

	// ErrInputUnavailable — обязательный входной артефакт не был произведён
	// ни одной из зависимостей шага.
	ErrInputUnavailable = errors.New("no dependency produced an input artifact")
)
