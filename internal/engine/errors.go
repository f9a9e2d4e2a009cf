package engine

import (
	"errors"
	"strings"

	"github.com/shaiso/Autocal/internal/domain"
)

// Ошибки построения графа. Все фатальны для построения и никогда
// не ретраятся автоматически.
var (
	// ErrGraphCycle — зависимости образуют цикл.
	ErrGraphCycle = errors.New("dependency cycle detected")

	// ErrUnresolvedDependency — ссылка на узел или параметр,
	// отсутствующий в графе.
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrMalformedReference — ссылка не соответствует синтаксису "Node:Param".
	ErrMalformedReference = domain.ErrMalformedRef

	// ErrBaseHasDependents — описание пытается переопределить базовый
	// узел или дать ему зависимости.
	ErrBaseHasDependents = errors.New("base node must have no dependents")
)

// Причины отказа полной калибровки.
var (
	// ErrBadData — измерение вернуло испорченные данные.
	ErrBadData = errors.New("bad data")

	// ErrFittingFailure — фит не сошёлся.
	ErrFittingFailure = errors.New("fit did not converge")

	// ErrBadFitting — фит сошёлся вне допустимого семейства параметров.
	ErrBadFitting = errors.New("fit outside acceptable parameter family")
)

// BuildError — ошибка построения графа с контекстом узла.
type BuildError struct {
	Node    string // узел, на котором обнаружена проблема
	Message string // описание
	Err     error  // базовая ошибка (ErrGraphCycle и т.п.)
}

// Error реализует интерфейс error.
func (e *BuildError) Error() string {
	if e.Node != "" {
		return "build graph: node " + e.Node + ": " + e.Message
	}
	return "build graph: " + e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// newCycleError строит BuildError для цикла, перечисляя узлы пути.
func newCycleError(path []string) *BuildError {
	return &BuildError{
		Node:    path[len(path)-1],
		Message: "cycle through " + strings.Join(path, " -> "),
		Err:     ErrGraphCycle,
	}
}

// CalibrationFailure — узел не смог произвести доверенные параметры.
//
// Поднимает sticky-флаг calibrationFailed узла; снимается только
// последующей успешной калибровкой, не течением времени.
type CalibrationFailure struct {
	Node   string // узел, на котором калибровка отказала
	Reason string // человекочитаемая причина
	Err    error  // ErrBadData / ErrFittingFailure / ErrBadFitting
}

// Error реализует интерфейс error.
func (e *CalibrationFailure) Error() string {
	return "calibration failed at node " + e.Node + ": " + e.Reason
}

// Unwrap возвращает базовую ошибку.
func (e *CalibrationFailure) Unwrap() error {
	return e.Err
}

// DiagnoseFailure — плохие данные без объясняющей перекалибровки выше
// по графу. Строго внутренняя для рекурсивного алгоритма: наружу
// всегда выходит завёрнутой в MaintainFailure.
type DiagnoseFailure struct {
	Node string // узел с необъяснённой порчей данных
}

// Error реализует интерфейс error.
func (e *DiagnoseFailure) Error() string {
	return "diagnose failed at node " + e.Node +
		": bad data with no explanatory upstream recalibration, manual inspection required"
}

// MaintainFailure — отказ запуска обслуживания.
//
// Единственный тип отказа, который должен обрабатывать вызывающий
// MaintenanceEngine код. Называет отказавший узел и корень, который
// обслуживался.
type MaintainFailure struct {
	Root string // корень, с которого шло обслуживание
	Node string // узел, на котором произошёл отказ
	Err  error  // исходная ошибка (CalibrationFailure, DiagnoseFailure, ...)
}

// Error реализует интерфейс error.
func (e *MaintainFailure) Error() string {
	return "maintain root " + e.Root + ": failure at node " + e.Node + ": " + e.Err.Error()
}

// Unwrap возвращает исходную ошибку.
func (e *MaintainFailure) Unwrap() error {
	return e.Err
}

// failingNode извлекает имя отказавшего узла из ошибки обслуживания.
// Если типизированного контекста нет, возвращает fallback.
func failingNode(err error, fallback string) string {
	var df *DiagnoseFailure
	if errors.As(err, &df) {
		return df.Node
	}
	var cf *CalibrationFailure
	if errors.As(err, &cf) {
		return cf.Node
	}
	return fallback
}
