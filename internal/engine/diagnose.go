package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Autocal/internal/store"
	"github.com/shaiso/Autocal/internal/strategy"
	"github.com/shaiso/Autocal/internal/telemetry"
)

// checkDataResult — классификация быстрой проверки данных.
type checkDataResult int

const (
	checkBadData checkDataResult = iota
	checkInSpec
	checkOutOfSpec
)

// checkData — быстрая проверка на ограниченных данных.
//
// Классифицирует наблюдение ровно в один из трёх исходов; проверка
// плохих данных имеет приоритет над проверкой соответствия спеке.
// Для InSpec также возвращает последние сохранённые параметры —
// они переиспользуются для обновления отметки времени.
func (n *CalibrationNode) checkData(ctx context.Context) (checkDataResult, map[string]float64, error) {
	deps, err := n.resolveDependentParams(ctx)
	if err != nil {
		return checkBadData, nil, err
	}

	obs, err := n.strategy.Scan(ctx, deps, strategy.ScanQuick)
	if err != nil {
		return checkBadData, nil, fmt.Errorf("quick scan for %s: %w", n.name, err)
	}
	telemetry.ScansTotal.WithLabelValues(n.name, string(strategy.ScanQuick)).Inc()

	if n.strategy.BadData(obs) {
		return checkBadData, nil, nil
	}

	last, err := n.store.LastParams(ctx, n.tableKey, n.paramKeys)
	if errors.Is(err, store.ErrNoRows) {
		// Узел ещё ни разу не калибровался: сравнивать не с чем,
		// нужна полная калибровка.
		return checkOutOfSpec, nil, nil
	}
	if err != nil {
		return checkBadData, nil, fmt.Errorf("last params for %s: %w", n.name, err)
	}

	if n.strategy.TestInSpec(obs, last) {
		values := make(map[string]float64, len(n.paramKeys))
		for i, key := range n.paramKeys {
			values[key] = last[i]
		}
		return checkInSpec, values, nil
	}
	return checkOutOfSpec, nil, nil
}

// diagnose — классификация по данным и рекурсивный поиск первопричины.
//
// Возвращает true, если этот запуск произвёл свежую калибровку узла:
//   - InSpec: новая строка с прежними значениями (обновление отметки
//     времени), recalibrated=false, false.
//   - OutOfSpec: полная калибровка, recalibrated=true, true.
//   - BadData: рекурсивный diagnose всех поставщиков. Если хотя бы
//     один был перекалиброван — порча могла объясняться дрейфом выше,
//     полная калибровка этого узла. Если никто — порча не объяснена,
//     DiagnoseFailure.
func (n *CalibrationNode) diagnose(ctx context.Context) (bool, error) {
	if n.isBase {
		return false, nil
	}

	result, lastValues, err := n.checkData(ctx)
	if err != nil {
		return false, err
	}

	switch result {
	case checkInSpec:
		// Перепроверка подтвердила валидность: свежая строка с теми же
		// значениями обновляет отметку времени.
		if err := n.updateParams(ctx, lastValues); err != nil {
			return false, err
		}
		n.recalibrated = false
		n.logger.Debug("diagnose: in spec, timestamp refreshed")
		return false, nil

	case checkOutOfSpec:
		if err := n.runCalibration(ctx); err != nil {
			return false, err
		}
		n.logger.Info("diagnose: out of spec, recalibrated")
		return true, nil

	default: // checkBadData
		n.logger.Warn("diagnose: bad data, searching upstream for a cause")

		anyRecalibrated := false
		for _, dep := range n.dependents {
			recalibrated, err := dep.diagnose(ctx)
			if err != nil {
				return false, err
			}
			anyRecalibrated = anyRecalibrated || recalibrated
		}

		if !anyRecalibrated {
			return false, &DiagnoseFailure{Node: n.name}
		}

		// Выше по графу что-то действительно перекалибровалось —
		// первопричина могла быть устранена, пробуем снова.
		if err := n.runCalibration(ctx); err != nil {
			return false, err
		}
		n.logger.Info("diagnose: recovered after upstream recalibration")
		return true, nil
	}
}

// runCalibration выполняет полную калибровку и помечает узел
// перекалиброванным.
func (n *CalibrationNode) runCalibration(ctx context.Context) error {
	if _, err := n.calibrate(ctx); err != nil {
		return err
	}
	n.recalibrated = true
	return nil
}

// calibrate — полная калибровка узла.
//
// Разрешает зависимые параметры, выполняет полное (непрореженное)
// измерение и фит. Успех добавляет строку истории и снимает
// calibrationFailed; любой отказ поднимает sticky-флаг и возвращает
// CalibrationFailure с конкретной причиной.
func (n *CalibrationNode) calibrate(ctx context.Context) (map[string]float64, error) {
	deps, err := n.resolveDependentParams(ctx)
	if err != nil {
		return nil, err
	}

	obs, err := n.strategy.Scan(ctx, deps, strategy.ScanFull)
	if err != nil {
		return nil, fmt.Errorf("full scan for %s: %w", n.name, err)
	}
	telemetry.ScansTotal.WithLabelValues(n.name, string(strategy.ScanFull)).Inc()

	if n.strategy.BadData(obs) {
		n.calibrationFailed = true
		telemetry.CalibrationsTotal.WithLabelValues(n.name, "failure").Inc()
		return nil, &CalibrationFailure{
			Node:   n.name,
			Reason: "bad data, manual inspection is required",
			Err:    ErrBadData,
		}
	}

	result := n.strategy.Analyze(obs)
	if !result.Succeeded {
		n.calibrationFailed = true
		telemetry.CalibrationsTotal.WithLabelValues(n.name, "failure").Inc()

		switch result.ErrKind {
		case strategy.ErrKindBadFitting:
			return nil, &CalibrationFailure{
				Node:   n.name,
				Reason: "fitted the data, but outside the acceptable parameter family",
				Err:    ErrBadFitting,
			}
		default:
			return nil, &CalibrationFailure{
				Node:   n.name,
				Reason: "not able to fit the acquired data",
				Err:    ErrFittingFailure,
			}
		}
	}

	if len(result.Values) != len(n.paramKeys) {
		n.calibrationFailed = true
		telemetry.CalibrationsTotal.WithLabelValues(n.name, "failure").Inc()
		return nil, &CalibrationFailure{
			Node: n.name,
			Reason: fmt.Sprintf("fit produced %d values for %d params",
				len(result.Values), len(n.paramKeys)),
			Err: ErrBadFitting,
		}
	}

	values := make(map[string]float64, len(n.paramKeys))
	for i, key := range n.paramKeys {
		values[key] = result.Values[i]
	}

	if err := n.updateParams(ctx, values); err != nil {
		return nil, err
	}

	n.calibrationFailed = false
	telemetry.CalibrationsTotal.WithLabelValues(n.name, "success").Inc()
	n.logger.Info("calibrated", "values", values)
	return values, nil
}
