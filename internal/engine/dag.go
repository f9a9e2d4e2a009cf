package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Autocal/internal/domain"
	"github.com/shaiso/Autocal/internal/store"
	"github.com/shaiso/Autocal/internal/strategy"
	"github.com/shaiso/Autocal/internal/telemetry"
)

// Graph — построенный граф калибровочных узлов.
//
// Граф эксклюзивно владеет всеми узлами; узлы держат невладеющие
// ссылки на своих поставщиков. Узлы создаются один раз на
// инстанцирование графа (runID различает таблицы хранилища между
// инстанцированиями) и живут до конца процесса.
type Graph struct {
	// Name — имя графа из описания.
	Name string

	// RunID — идентификатор инстанцирования графа.
	RunID uuid.UUID

	nodes map[string]*CalibrationNode
	order []string
	base  *CalibrationNode
}

// Node возвращает узел по имени.
func (g *Graph) Node(name string) *CalibrationNode {
	return g.nodes[name]
}

// Base возвращает базовый узел графа.
func (g *Graph) Base() *CalibrationNode {
	return g.base
}

// Order возвращает топологический порядок имён узлов:
// каждый узел идёт после всех узлов, от которых он зависит.
// Базовый узел всегда первый.
func (g *Graph) Order() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Size возвращает количество узлов, включая базовый.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Roots возвращает имена узлов, от которых никто не зависит
// (стоки в направлении потребителей). Обслуживание этих корней
// покрывает весь граф.
func (g *Graph) Roots() []string {
	consumed := make(map[string]bool, len(g.nodes))
	for _, n := range g.nodes {
		for _, dep := range n.dependents {
			consumed[dep.name] = true
		}
	}

	var roots []string
	// Проход по топологическому порядку даёт стабильный результат.
	for _, name := range g.order {
		if !consumed[name] && name != domain.BaseName {
			roots = append(roots, name)
		}
	}
	return roots
}

// Build строит граф из описания: валидирует аджэценси, выполняет
// топологическую сортировку и создаёт узлы в отсортированном порядке,
// так что к моменту создания узла все его поставщики уже существуют.
//
// Базовые параметры записываются в хранилище ровно один раз, здесь.
func Build(ctx context.Context, spec *domain.GraphSpec, reg *strategy.Registry, st store.ParameterStore, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.Default()
	}

	defs := make(map[string]*domain.NodeDef, len(spec.Nodes))
	for i := range spec.Nodes {
		defs[spec.Nodes[i].Name] = &spec.Nodes[i]
	}

	// Первый проход: извлекаем имена узлов из ссылок "Node:Param".
	adjacency, err := buildAdjacency(spec, defs)
	if err != nil {
		return nil, err
	}

	// Проверка циклов и топологический порядок.
	order, err := topologicalSort(spec, adjacency)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Name:  spec.Name,
		RunID: uuid.New(),
		nodes: make(map[string]*CalibrationNode, len(order)),
		order: order,
	}
	nodeLogger := telemetry.WithRun(telemetry.WithGraph(logger, g.Name), g.RunID.String())

	// Второй проход: создаём узлы строго в отсортированном порядке.
	for _, name := range order {
		if name == domain.BaseName {
			base, err := newBaseNode(ctx, g, spec.Base, st, nodeLogger)
			if err != nil {
				return nil, err
			}
			g.base = base
			g.nodes[name] = base
			continue
		}

		node, err := newCalibrationNode(ctx, g, defs[name], adjacency[name], reg, st, nodeLogger)
		if err != nil {
			return nil, err
		}
		g.nodes[name] = node
	}

	logger.Info("calibration graph built",
		"graph", g.Name,
		"run_id", g.RunID,
		"nodes", g.Size(),
		"order", g.order,
	)
	return g, nil
}

// buildAdjacency извлекает отношение зависимости из ссылок на
// параметры. Ключ — узел-потребитель, значение — упорядоченный
// список его поставщиков без дубликатов.
func buildAdjacency(spec *domain.GraphSpec, defs map[string]*domain.NodeDef) (map[string][]string, error) {
	adjacency := make(map[string][]string, len(spec.Nodes)+1)
	adjacency[domain.BaseName] = nil

	for i := range spec.Nodes {
		def := &spec.Nodes[i]

		// Базовые параметры приходят извне; описание не может ни
		// переопределить базовый узел, ни дать ему зависимости.
		if def.Name == domain.BaseName {
			msg := "base node is supplied externally and is not redeclarable"
			if len(def.DependentParamKeys) > 0 {
				msg = "base node accepts no dependencies"
			}
			return nil, &BuildError{Node: def.Name, Message: msg, Err: ErrBaseHasDependents}
		}

		var providers []string
		seen := make(map[string]bool)
		for _, raw := range def.DependentParamKeys {
			ref, err := domain.ParseParamRef(raw)
			if err != nil {
				return nil, &BuildError{Node: def.Name, Message: err.Error(), Err: ErrMalformedReference}
			}

			// Ссылка должна разрешаться в узел описания и в параметр
			// этого узла.
			if err := resolveRef(spec, defs, ref); err != nil {
				return nil, &BuildError{
					Node:    def.Name,
					Message: fmt.Sprintf("reference %q: %v", raw, err),
					Err:     ErrUnresolvedDependency,
				}
			}

			if !seen[ref.Node] {
				seen[ref.Node] = true
				providers = append(providers, ref.Node)
			}
		}
		adjacency[def.Name] = providers
	}
	return adjacency, nil
}

// resolveRef проверяет, что ссылка указывает на существующий узел
// и на объявленный им параметр.
func resolveRef(spec *domain.GraphSpec, defs map[string]*domain.NodeDef, ref domain.ParamRef) error {
	if ref.Node == domain.BaseName {
		if _, ok := spec.Base.Params[ref.Param]; !ok {
			return fmt.Errorf("base has no param %q", ref.Param)
		}
		return nil
	}

	provider, ok := defs[ref.Node]
	if !ok {
		return fmt.Errorf("node %q is not declared", ref.Node)
	}
	for _, key := range provider.ParamKeys {
		if key == ref.Param {
			return nil
		}
	}
	return fmt.Errorf("node %q has no param %q", ref.Node, ref.Param)
}

// topologicalSort — трёхцветный DFS (unvisited / in-progress / finished).
//
// Узел, уже находящийся in-progress на текущем пути, означает цикл;
// ошибка называет все узлы текущего пути. Базовый узел посещается
// первым и потому всегда первый в порядке.
func topologicalSort(spec *domain.GraphSpec, adjacency map[string][]string) ([]string, error) {
	const (
		inProgress = 1
		finished   = 2
	)
	state := make(map[string]int, len(adjacency))
	order := make([]string, 0, len(adjacency))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case finished:
			return nil
		case inProgress:
			return newCycleError(append(path, name))
		}

		state[name] = inProgress
		path = append(path, name)

		for _, provider := range adjacency[name] {
			if err := visit(provider); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[name] = finished
		order = append(order, name)
		return nil
	}

	// Base первым, затем узлы в порядке объявления — порядок обхода
	// детерминирован.
	if err := visit(domain.BaseName); err != nil {
		return nil, err
	}
	for i := range spec.Nodes {
		if err := visit(spec.Nodes[i].Name); err != nil {
			return nil, err
		}
	}

	return order, nil
}
