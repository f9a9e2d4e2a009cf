package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shaiso/Autocal/internal/domain"
	"github.com/shaiso/Autocal/internal/store"
	"github.com/shaiso/Autocal/internal/strategy"
)

// stubStrategy — управляемая из теста стратегия. Поведение задаётся
// функциями-хуками; по умолчанию данные хорошие, узел in spec, фит
// возвращает fitValues.
type stubStrategy struct {
	fitValues []float64

	badFn     func(mode strategy.ScanMode, deps []float64) bool
	inSpecFn  func() bool
	analyzeFn func() strategy.AnalyzeResult

	scanModes []strategy.ScanMode
	lastMode  strategy.ScanMode
	lastDeps  []float64
}

func (s *stubStrategy) Scan(_ context.Context, deps []float64, mode strategy.ScanMode) (strategy.Observation, error) {
	s.scanModes = append(s.scanModes, mode)
	s.lastMode = mode
	s.lastDeps = append([]float64(nil), deps...)
	return strategy.Observation{X: []float64{0}, Y: []float64{0}}, nil
}

func (s *stubStrategy) BadData(strategy.Observation) bool {
	if s.badFn == nil {
		return false
	}
	return s.badFn(s.lastMode, s.lastDeps)
}

func (s *stubStrategy) TestInSpec(strategy.Observation, []float64) bool {
	if s.inSpecFn == nil {
		return true
	}
	return s.inSpecFn()
}

func (s *stubStrategy) Analyze(strategy.Observation) strategy.AnalyzeResult {
	if s.analyzeFn != nil {
		return s.analyzeFn()
	}
	values := s.fitValues
	if values == nil {
		values = []float64{1}
	}
	return strategy.AnalyzeResult{Succeeded: true, Values: values}
}

func (s *stubStrategy) Log() string { return "" }

func (s *stubStrategy) scans(mode strategy.ScanMode) int {
	n := 0
	for _, m := range s.scanModes {
		if m == mode {
			n++
		}
	}
	return n
}

// stubRegistry регистрирует фабрику "stub", раздающую стратегии из
// карты по имени узла. Отсутствующие узлы получают стратегию по
// умолчанию, которая также попадает в карту.
func stubRegistry(stubs map[string]*stubStrategy) *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register("stub", func(def domain.NodeDef) (strategy.Strategy, error) {
		s, ok := stubs[def.Name]
		if !ok {
			s = &stubStrategy{}
			stubs[def.Name] = s
		}
		return s, nil
	})
	return r
}

func nodeDef(name string, deps ...string) domain.NodeDef {
	return domain.NodeDef{
		Name:               name,
		Strategy:           "stub",
		ParamKeys:          []string{name + "_p"},
		DependentParamKeys: deps,
		ValidityWindowSec:  3600,
	}
}

func testSpec(nodes ...domain.NodeDef) *domain.GraphSpec {
	return &domain.GraphSpec{
		Name:  "test",
		Base:  domain.BaseDef{Params: map[string]float64{"x_max": 10}},
		Nodes: nodes,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildGraph(t *testing.T, spec *domain.GraphSpec, stubs map[string]*stubStrategy, st *store.MemoryStore) *Graph {
	t.Helper()
	g, err := Build(context.Background(), spec, stubRegistry(stubs), st, quietLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

// seed добавляет строку истории узла с заданным временем.
func seed(t *testing.T, st *store.MemoryStore, n *CalibrationNode, at time.Time, values map[string]float64) {
	t.Helper()
	prev := st.Now
	st.Now = func() time.Time { return at }
	defer func() { st.Now = prev }()

	if err := st.Insert(context.Background(), n.tableKey, values, "seed"); err != nil {
		t.Fatalf("seed %s: %v", n.name, err)
	}
}
