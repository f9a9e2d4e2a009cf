package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/Autocal/internal/domain"
	"github.com/shaiso/Autocal/internal/store"
	"github.com/shaiso/Autocal/internal/strategy"
)

func orderIndex(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestBuildChainOrder(t *testing.T) {
	spec := testSpec(
		nodeDef("A", "Base:x_max"),
		nodeDef("B", "A:A_p"),
		nodeDef("C", "B:B_p"),
	)
	g := buildGraph(t, spec, map[string]*stubStrategy{}, store.NewMemoryStore())

	if g.Size() != 4 {
		t.Fatalf("size = %d, want 4", g.Size())
	}

	order := g.Order()
	if order[0] != domain.BaseName {
		t.Errorf("order[0] = %s, want %s", order[0], domain.BaseName)
	}
	for _, pair := range [][2]string{{"A", "B"}, {"B", "C"}, {domain.BaseName, "A"}} {
		if orderIndex(order, pair[0]) >= orderIndex(order, pair[1]) {
			t.Errorf("order %v: %s must come before %s", order, pair[0], pair[1])
		}
	}

	roots := g.Roots()
	if len(roots) != 1 || roots[0] != "C" {
		t.Errorf("roots = %v, want [C]", roots)
	}
}

func TestBuildDiamondOrderProperty(t *testing.T) {
	spec := testSpec(
		nodeDef("A", "Base:x_max"),
		nodeDef("B", "A:A_p"),
		nodeDef("C", "A:A_p"),
		nodeDef("D", "B:B_p", "C:C_p"),
	)
	g := buildGraph(t, spec, map[string]*stubStrategy{}, store.NewMemoryStore())

	order := g.Order()
	for _, name := range order {
		n := g.Node(name)
		for _, dep := range n.Dependents() {
			if orderIndex(order, dep) >= orderIndex(order, name) {
				t.Errorf("order %v: provider %s must come before %s", order, dep, name)
			}
		}
	}

	roots := g.Roots()
	if len(roots) != 1 || roots[0] != "D" {
		t.Errorf("roots = %v, want [D]", roots)
	}
}

func TestBuildCycleNamesPath(t *testing.T) {
	spec := testSpec(
		nodeDef("A", "B:B_p"),
		nodeDef("B", "A:A_p"),
	)
	_, err := Build(context.Background(), spec, stubRegistry(map[string]*stubStrategy{}), store.NewMemoryStore(), quietLogger())
	if !errors.Is(err, ErrGraphCycle) {
		t.Fatalf("err = %v, want ErrGraphCycle", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "A") || !strings.Contains(msg, "B") || !strings.Contains(msg, "->") {
		t.Errorf("cycle error must name the path, got %q", msg)
	}
}

func TestBuildUnresolvedNode(t *testing.T) {
	spec := testSpec(nodeDef("A", "Ghost:p"))
	_, err := Build(context.Background(), spec, stubRegistry(map[string]*stubStrategy{}), store.NewMemoryStore(), quietLogger())
	if !errors.Is(err, ErrUnresolvedDependency) {
		t.Fatalf("err = %v, want ErrUnresolvedDependency", err)
	}

	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("err = %T, want *BuildError", err)
	}
	if be.Node != "A" {
		t.Errorf("BuildError.Node = %s, want A", be.Node)
	}
	if !strings.Contains(be.Message, "Ghost") {
		t.Errorf("message must name the missing node, got %q", be.Message)
	}
}

func TestBuildUnresolvedParam(t *testing.T) {
	spec := testSpec(
		nodeDef("A"),
		nodeDef("B", "A:no_such_param"),
	)
	_, err := Build(context.Background(), spec, stubRegistry(map[string]*stubStrategy{}), store.NewMemoryStore(), quietLogger())
	if !errors.Is(err, ErrUnresolvedDependency) {
		t.Fatalf("err = %v, want ErrUnresolvedDependency", err)
	}
}

func TestBuildMalformedReference(t *testing.T) {
	spec := testSpec(nodeDef("A", "NoColonHere"))
	_, err := Build(context.Background(), spec, stubRegistry(map[string]*stubStrategy{}), store.NewMemoryStore(), quietLogger())
	if !errors.Is(err, ErrMalformedReference) {
		t.Fatalf("err = %v, want ErrMalformedReference", err)
	}
}

func TestBuildRejectsBaseRedeclaration(t *testing.T) {
	spec := testSpec(
		nodeDef("A"),
		nodeDef(domain.BaseName, "A:A_p"),
	)
	_, err := Build(context.Background(), spec, stubRegistry(map[string]*stubStrategy{}), store.NewMemoryStore(), quietLogger())
	if !errors.Is(err, ErrBaseHasDependents) {
		t.Fatalf("err = %v, want ErrBaseHasDependents", err)
	}

	var be *BuildError
	if !errors.As(err, &be) || be.Node != domain.BaseName {
		t.Errorf("err = %v, want BuildError naming %s", err, domain.BaseName)
	}
}

func TestBuildUnknownStrategy(t *testing.T) {
	spec := testSpec(domain.NodeDef{
		Name:              "A",
		Strategy:          "no_such_strategy",
		ParamKeys:         []string{"A_p"},
		ValidityWindowSec: 3600,
	})
	_, err := Build(context.Background(), spec, stubRegistry(map[string]*stubStrategy{}), store.NewMemoryStore(), quietLogger())
	if !errors.Is(err, strategy.ErrStrategyNotFound) {
		t.Fatalf("err = %v, want ErrStrategyNotFound", err)
	}
}

func TestBuildWritesBaseParamsOnce(t *testing.T) {
	st := store.NewMemoryStore()
	g := buildGraph(t, testSpec(nodeDef("A", "Base:x_max")), map[string]*stubStrategy{}, st)

	base := g.Base()
	if base == nil || !base.IsBase() {
		t.Fatalf("graph must expose the base node")
	}
	if got := st.RowCount(base.TableKey()); got != 1 {
		t.Errorf("base rows = %d, want 1", got)
	}

	vals, err := st.LastParams(context.Background(), base.TableKey(), []string{"x_max"})
	if err != nil {
		t.Fatalf("LastParams: %v", err)
	}
	if vals[0] != 10 {
		t.Errorf("x_max = %v, want 10", vals[0])
	}
}
