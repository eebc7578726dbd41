package domain

// StepStatus — статус шага в рамках одного run.
//
// Жизненный цикл:
//
//	PENDING → READY → RUNNING → SUCCEEDED
//	                          ↘ FAILED
//	        ↘ SKIPPED (шаг выключен или зависимость не выполнилась)
type StepStatus string

const (
	// StepStatusPending — шаг ещё не рассматривался.
	StepStatusPending StepStatus = "PENDING"

	// StepStatusReady — все зависимости успешно завершены, шаг включён.
	StepStatusReady StepStatus = "READY"

	// StepStatusRunning — шаг выполняется.
	StepStatusRunning StepStatus = "RUNNING"

	// StepStatusSucceeded — шаг успешно завершён.
	StepStatusSucceeded StepStatus = "SUCCEEDED"

	// StepStatusFailed — шаг завершился с ошибкой.
	StepStatusFailed StepStatus = "FAILED"

	// StepStatusSkipped — шаг пропущен: выключен либо зависимость
	// не завершилась успехом. Пропуск — не ошибка run'а.
	StepStatusSkipped StepStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusSucceeded, StepStatusFailed, StepStatusSkipped:
		return true
	default:
		return false
	}
}
