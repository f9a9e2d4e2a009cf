package domain

// MaintainStatus — исход запуска обслуживания.
//
// Жизненный цикл запуска:
//
//	RUNNING → SUCCEEDED
//	        ↘ FAILED
type MaintainStatus string

const (
	// MaintainStatusRunning — обслуживание в процессе выполнения.
	MaintainStatusRunning MaintainStatus = "RUNNING"

	// MaintainStatusSucceeded — все достижимые узлы обслужены.
	MaintainStatusSucceeded MaintainStatus = "SUCCEEDED"

	// MaintainStatusFailed — обслуживание прервано отказом узла.
	MaintainStatusFailed MaintainStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s MaintainStatus) IsTerminal() bool {
	return s == MaintainStatusSucceeded || s == MaintainStatusFailed
}
