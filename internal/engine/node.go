package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shaiso/Autocal/internal/domain"
	"github.com/shaiso/Autocal/internal/store"
	"github.com/shaiso/Autocal/internal/strategy"
	"github.com/shaiso/Autocal/internal/telemetry"
)

// CalibrationNode — вершина графа калибровок.
//
// Узел владеет одной привязкой стратегии и окном валидности.
// Состояния за запуск: Undiscovered → Discovered → (Skipped | Diagnosed);
// флаги discovered/recalibrated сбрасываются на границах запуска,
// calibrationFailed — sticky до успешной калибровки.
type CalibrationNode struct {
	name               string
	paramKeys          []string
	dependentParamKeys []domain.ParamRef
	dependents         []*CalibrationNode
	validityWindow     time.Duration
	tableKey           string
	strategy           strategy.Strategy
	store              store.ParameterStore
	logger             *slog.Logger
	isBase             bool

	// Флаги запуска. discovered — узел уже посещён в этом запуске
	// (мемоизация DFS в ромбовидных графах); recalibrated — этот
	// запуск произвёл свежий фит узла.
	discovered   bool
	recalibrated bool

	// calibrationFailed переживает запуски: отказ не самоизлечивается
	// одним лишь устареванием.
	calibrationFailed bool
}

// newCalibrationNode создаёт узел и регистрирует его историю в
// хранилище. Все поставщики узла к этому моменту уже построены.
func newCalibrationNode(ctx context.Context, g *Graph, def *domain.NodeDef, providers []string, reg *strategy.Registry, st store.ParameterStore, logger *slog.Logger) (*CalibrationNode, error) {
	strat, err := reg.New(def.Strategy, *def)
	if err != nil {
		return nil, &BuildError{Node: def.Name, Message: err.Error(), Err: err}
	}

	refs := make([]domain.ParamRef, 0, len(def.DependentParamKeys))
	for _, raw := range def.DependentParamKeys {
		ref, err := domain.ParseParamRef(raw)
		if err != nil {
			return nil, &BuildError{Node: def.Name, Message: err.Error(), Err: ErrMalformedReference}
		}
		refs = append(refs, ref)
	}

	deps := make([]*CalibrationNode, 0, len(providers))
	for _, provider := range providers {
		dep := g.nodes[provider]
		if dep == nil {
			return nil, &BuildError{
				Node:    def.Name,
				Message: fmt.Sprintf("provider %q not built", provider),
				Err:     ErrUnresolvedDependency,
			}
		}
		deps = append(deps, dep)
	}

	n := &CalibrationNode{
		name:               def.Name,
		paramKeys:          def.ParamKeys,
		dependentParamKeys: refs,
		dependents:         deps,
		validityWindow:     time.Duration(def.ValidityWindowSec) * time.Second,
		tableKey:           fmt.Sprintf("%s_%s", def.Name, g.RunID),
		strategy:           strat,
		store:              st,
		logger:             telemetry.WithNode(logger, def.Name),
	}

	if err := st.Initialize(ctx, n.tableKey, n.paramKeys); err != nil {
		return nil, fmt.Errorf("initialize store for %s: %w", n.name, err)
	}
	return n, nil
}

// newBaseNode создаёт базовый узел и записывает его константы в
// хранилище — ровно один раз за инстанцирование графа.
func newBaseNode(ctx context.Context, g *Graph, def domain.BaseDef, st store.ParameterStore, logger *slog.Logger) (*CalibrationNode, error) {
	keys := make([]string, 0, len(def.Params))
	for key := range def.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	n := &CalibrationNode{
		name:      domain.BaseName,
		paramKeys: keys,
		tableKey:  fmt.Sprintf("%s_%s", domain.BaseName, g.RunID),
		store:     st,
		logger:    telemetry.WithNode(logger, domain.BaseName),
		isBase:    true,
	}

	if err := st.Initialize(ctx, n.tableKey, keys); err != nil {
		return nil, fmt.Errorf("initialize store for base: %w", err)
	}
	if err := st.Insert(ctx, n.tableKey, def.Params, "base parameters insertion"); err != nil {
		return nil, fmt.Errorf("insert base params: %w", err)
	}
	return n, nil
}

// Name возвращает имя узла.
func (n *CalibrationNode) Name() string { return n.name }

// TableKey возвращает ключ истории узла в хранилище.
func (n *CalibrationNode) TableKey() string { return n.tableKey }

// ParamKeys возвращает выходные параметры узла.
func (n *CalibrationNode) ParamKeys() []string {
	out := make([]string, len(n.paramKeys))
	copy(out, n.paramKeys)
	return out
}

// Dependents возвращает имена поставщиков узла.
func (n *CalibrationNode) Dependents() []string {
	out := make([]string, 0, len(n.dependents))
	for _, dep := range n.dependents {
		out = append(out, dep.name)
	}
	return out
}

// CalibrationFailed возвращает sticky-флаг отказа калибровки.
func (n *CalibrationNode) CalibrationFailed() bool { return n.calibrationFailed }

// Recalibrated возвращает true, если текущий/последний незавершённый
// запуск произвёл свежий фит узла. После сброса флагов всегда false.
func (n *CalibrationNode) Recalibrated() bool { return n.recalibrated }

// IsBase возвращает true для базового узла.
func (n *CalibrationNode) IsBase() bool { return n.isBase }

// ValidityWindow возвращает окно валидности узла.
func (n *CalibrationNode) ValidityWindow() time.Duration { return n.validityWindow }

// maintain — рекурсивная точка входа обслуживания узла.
//
// Мемоизировано флагом discovered: узел с двумя потребителями ниже
// по графу обслуживается один раз за запуск. Поставщики обслуживаются
// до оценки самого узла.
func (n *CalibrationNode) maintain(ctx context.Context) error {
	if n.discovered {
		return nil
	}
	n.discovered = true

	for _, dep := range n.dependents {
		if err := dep.maintain(ctx); err != nil {
			return err
		}
	}

	ok, err := n.checkState(ctx)
	if err != nil {
		return err
	}
	if ok {
		n.logger.Debug("node still valid, skipping")
		return nil
	}

	_, err = n.diagnose(ctx)
	return err
}

// checkState — быстрая проверка без данных.
// true — узел валиден, измерение не требуется.
//
// false, если: истекло собственное окно валидности; поднят
// calibrationFailed; какой-либо поставщик не проходит checkState;
// какой-либо поставщик был перекалиброван в этом запуске (свежие
// значения выше по графу лишают доверия значения ниже, даже если
// собственное окно ещё не истекло).
func (n *CalibrationNode) checkState(ctx context.Context) (bool, error) {
	if n.isBase {
		return true, nil
	}

	stale, err := n.stale(ctx)
	if err != nil {
		return false, err
	}
	if stale || n.calibrationFailed {
		return false, nil
	}

	for _, dep := range n.dependents {
		ok, err := dep.checkState(ctx)
		if err != nil {
			return false, err
		}
		if !ok || dep.recalibrated {
			return false, nil
		}
	}
	return true, nil
}

// stale возвращает true, если последнее измерение устарело.
// Узел без единой строки истории всегда устаревший.
func (n *CalibrationNode) stale(ctx context.Context) (bool, error) {
	last, err := n.store.LastTimestamp(ctx, n.tableKey)
	if errors.Is(err, store.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("last timestamp for %s: %w", n.name, err)
	}
	return time.Since(last) > n.validityWindow, nil
}

// resolveDependentParams читает текущие значения всех ссылок
// DependentParamKeys из историй поставщиков, в порядке объявления.
func (n *CalibrationNode) resolveDependentParams(ctx context.Context) ([]float64, error) {
	values := make([]float64, 0, len(n.dependentParamKeys))
	for _, ref := range n.dependentParamKeys {
		var provider *CalibrationNode
		for _, dep := range n.dependents {
			if dep.name == ref.Node {
				provider = dep
				break
			}
		}
		if provider == nil {
			return nil, fmt.Errorf("%w: node %s references %s", ErrUnresolvedDependency, n.name, ref.Node)
		}

		vs, err := n.store.LastParams(ctx, provider.tableKey, []string{ref.Param})
		if err != nil {
			return nil, fmt.Errorf("resolve %s for %s: %w", ref, n.name, err)
		}
		values = append(values, vs[0])
	}
	return values, nil
}

// updateParams добавляет новую строку истории узла, забирая
// накопленный диагностический лог стратегии.
func (n *CalibrationNode) updateParams(ctx context.Context, values map[string]float64) error {
	if err := n.store.Insert(ctx, n.tableKey, values, n.strategy.Log()); err != nil {
		return fmt.Errorf("insert row for %s: %w", n.name, err)
	}
	return nil
}

// resetFlags рекурсивно сбрасывает флаги запуска у узла и всех его
// поставщиков. calibrationFailed не трогает.
func (n *CalibrationNode) resetFlags() {
	for _, dep := range n.dependents {
		dep.resetFlags()
	}
	n.discovered = false
	n.recalibrated = false
}
