package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Autocal/internal/telemetry"
)

// Report — итог одного запуска обслуживания.
type Report struct {
	// Roots — корни, с которых шло обслуживание.
	Roots []string

	// Recalibrated — узлы, получившие свежий фит в этом запуске,
	// в порядке выполнения.
	Recalibrated []string

	// Duration — длительность запуска.
	Duration time.Duration
}

// MaintenanceEngine — точка входа обслуживания графа.
//
// Движок строго однопоточный: один запуск за раз, никакого внутреннего
// параллелизма. Приборы — эксклюзивный ресурс, и последовательность
// измерений сама по себе инвариант корректности.
type MaintenanceEngine struct {
	graph  *Graph
	logger *slog.Logger
}

// New создаёт движок поверх построенного графа.
func New(graph *Graph, logger *slog.Logger) *MaintenanceEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceEngine{
		graph:  graph,
		logger: telemetry.WithGraph(logger, graph.Name),
	}
}

// Graph возвращает обслуживаемый граф.
func (e *MaintenanceEngine) Graph() *Graph {
	return e.graph
}

// Maintain выполняет запуск обслуживания от указанных корней.
// Без аргументов обслуживаются все стоки графа, что покрывает его
// целиком.
//
// Флаги запуска (discovered, recalibrated) сбрасываются безусловно,
// и при успехе, и при отказе; calibrationFailed переживает сброс.
// Отказ возвращается как *MaintainFailure с именами корня и узла.
func (e *MaintenanceEngine) Maintain(ctx context.Context, roots ...string) (*Report, error) {
	if len(roots) == 0 {
		roots = e.graph.Roots()
	}

	nodes := make([]*CalibrationNode, 0, len(roots))
	for _, name := range roots {
		n := e.graph.Node(name)
		if n == nil {
			return nil, fmt.Errorf("%w: unknown root %q", ErrUnresolvedDependency, name)
		}
		nodes = append(nodes, n)
	}

	start := time.Now()
	e.logger.Info("maintain run started", "roots", roots)

	var runErr error
	for i, root := range nodes {
		if err := root.maintain(ctx); err != nil {
			runErr = &MaintainFailure{
				Root: roots[i],
				Node: failingNode(err, roots[i]),
				Err:  err,
			}
			break
		}
	}

	report := &Report{
		Roots:        roots,
		Recalibrated: e.collectRecalibrated(),
		Duration:     time.Since(start),
	}

	// Сброс выполняется до возврата в любом исходе: следующий запуск
	// начинается с чистых флагов.
	for _, root := range nodes {
		root.resetFlags()
	}

	telemetry.MaintainDuration.Observe(report.Duration.Seconds())
	telemetry.NodesRecalibrated.Add(float64(len(report.Recalibrated)))

	if runErr != nil {
		telemetry.MaintainRunsTotal.WithLabelValues("failure").Inc()
		e.logger.Error("maintain run failed",
			"error", runErr,
			"recalibrated", report.Recalibrated,
			"duration", report.Duration,
		)
		return report, runErr
	}

	telemetry.MaintainRunsTotal.WithLabelValues("success").Inc()
	e.logger.Info("maintain run succeeded",
		"recalibrated", report.Recalibrated,
		"duration", report.Duration,
	)
	return report, nil
}

// Calibrate принудительно калибрует один узел, минуя проверки
// валидности. Ручная точка входа для оператора.
//
// Поставщики узла при этом не обслуживаются: оператор сам отвечает
// за их состояние.
func (e *MaintenanceEngine) Calibrate(ctx context.Context, name string) (map[string]float64, error) {
	n := e.graph.Node(name)
	if n == nil {
		return nil, fmt.Errorf("%w: unknown node %q", ErrUnresolvedDependency, name)
	}
	if n.isBase {
		return nil, errors.New("base node is not calibratable")
	}

	values, err := n.calibrate(ctx)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// collectRecalibrated собирает имена перекалиброванных узлов в
// топологическом порядке, то есть в порядке фактического выполнения.
func (e *MaintenanceEngine) collectRecalibrated() []string {
	var out []string
	for _, name := range e.graph.Order() {
		n := e.graph.Node(name)
		if n != nil && n.recalibrated {
			out = append(out, name)
		}
	}
	return out
}
