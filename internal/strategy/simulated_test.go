package strategy

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/shaiso/Autocal/internal/domain"
)

func newTestDef(options map[string]any) domain.NodeDef {
	return domain.NodeDef{
		Name:      "sim",
		Strategy:  "simulated_linear",
		ParamKeys: []string{"a", "b", "a_times_b"},
		Tolerance: 0.05,
		Options:   options,
	}
}

func TestSimulatedLinear_FitRecoversModel(t *testing.T) {
	s, err := NewSimulatedLinear(newTestDef(map[string]any{"sigma": 0.0}))
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}

	obs, err := s.Scan(context.Background(), nil, ScanFull)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if obs.Len() != 101 {
		t.Errorf("full scan should have 101 points, got %d", obs.Len())
	}

	result := s.Analyze(obs)
	if !result.Succeeded {
		t.Fatalf("fit should succeed, got %v", result.ErrKind)
	}
	if len(result.Values) != 3 {
		t.Fatalf("expected 3 fitted values, got %d", len(result.Values))
	}

	// Без шума фит восстанавливает модель точно.
	want := []float64{10, 20, 200}
	for i, w := range want {
		if math.Abs(result.Values[i]-w) > 1e-9 {
			t.Errorf("value %d: expected %v, got %v", i, w, result.Values[i])
		}
	}
}

func TestSimulatedLinear_QuickScanDownsamples(t *testing.T) {
	s, err := NewSimulatedLinear(newTestDef(map[string]any{"downsampling": 5}))
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}

	obs, err := s.Scan(context.Background(), nil, ScanQuick)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if obs.Len() != 21 {
		t.Errorf("quick scan with downsampling 5 should have 21 points, got %d", obs.Len())
	}
}

func TestSimulatedLinear_BadDataDetection(t *testing.T) {
	s, err := NewSimulatedLinear(newTestDef(map[string]any{"inject_bad_data": true}))
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}

	obs, err := s.Scan(context.Background(), nil, ScanQuick)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !s.BadData(obs) {
		t.Error("pure noise should be classified as bad data")
	}

	// Нормальный сигнал плохим не считается.
	good, err := NewSimulatedLinear(newTestDef(nil))
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	obs, err = good.Scan(context.Background(), nil, ScanQuick)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if good.BadData(obs) {
		t.Error("real signal should not be classified as bad data")
	}
}

func TestSimulatedLinear_TestInSpec(t *testing.T) {
	s, err := NewSimulatedLinear(newTestDef(map[string]any{"sigma": 0.0}))
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}

	obs, err := s.Scan(context.Background(), nil, ScanQuick)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if !s.TestInSpec(obs, []float64{10, 20, 200}) {
		t.Error("exact target should be in spec")
	}
	if s.TestInSpec(obs, []float64{100, 200, 20000}) {
		t.Error("target off by 10x should be out of spec")
	}
}

func TestSimulatedLinear_LogDrains(t *testing.T) {
	s, err := NewSimulatedLinear(newTestDef(nil))
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}

	if _, err := s.Scan(context.Background(), []float64{1.5}, ScanFull); err != nil {
		t.Fatalf("scan: %v", err)
	}

	log := s.Log()
	if !strings.Contains(log, "scan full") {
		t.Errorf("log should mention the scan, got %q", log)
	}
	if s.Log() != "" {
		t.Error("second drain should return empty log")
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	if !r.Has("simulated_linear") {
		t.Fatal("default registry should contain simulated_linear")
	}

	if _, err := r.New("nope", domain.NodeDef{}); err == nil {
		t.Error("unknown strategy should return an error")
	}

	s, err := r.New("simulated_linear", newTestDef(nil))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s == nil {
		t.Fatal("strategy should not be nil")
	}

	names := r.Names()
	if len(names) != 1 || names[0] != "simulated_linear" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestSimulatedLinear_RejectsWrongParamCount(t *testing.T) {
	def := newTestDef(nil)
	def.ParamKeys = []string{"only_one"}
	if _, err := NewSimulatedLinear(def); err == nil {
		t.Error("single param key should be rejected")
	}
}
