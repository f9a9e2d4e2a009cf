package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaiso/Autocal/internal/domain"
	"github.com/shaiso/Autocal/internal/engine"
	"github.com/shaiso/Autocal/internal/scheduler"
	"github.com/shaiso/Autocal/internal/store"
	"github.com/shaiso/Autocal/internal/strategy"
)

func testServer(t *testing.T) (*httptest.Server, *engine.MaintenanceEngine) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore()
	spec := &domain.GraphSpec{
		Name: "api-test",
		Base: domain.BaseDef{Params: map[string]float64{"x_max": 10}},
		Nodes: []domain.NodeDef{
			{
				Name:               "rabi",
				Strategy:           "simulated_linear",
				ParamKeys:          []string{"a", "b"},
				DependentParamKeys: []string{"Base:x_max"},
				ValidityWindowSec:  3600,
				Tolerance:          0.1,
				Options:            map[string]any{"sigma": 0.0},
			},
		},
	}

	g, err := engine.Build(context.Background(), spec, strategy.DefaultRegistry(), st, logger)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	handler := NewHandler(Config{
		Graph:     g,
		History:   st,
		Scheduler: scheduler.New(nil, logger),
		Logger:    logger,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, engine.New(g, logger)
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

func TestGetGraph(t *testing.T) {
	srv, _ := testServer(t)

	var resp struct {
		Data GraphDTO `json:"data"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/graph", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	if resp.Data.Name != "api-test" {
		t.Errorf("name = %s, want api-test", resp.Data.Name)
	}
	if resp.Data.Nodes != 2 {
		t.Errorf("nodes = %d, want 2", resp.Data.Nodes)
	}
	if len(resp.Data.Order) == 0 || resp.Data.Order[0] != domain.BaseName {
		t.Errorf("order = %v, want Base first", resp.Data.Order)
	}
}

func TestListNodes(t *testing.T) {
	srv, _ := testServer(t)

	var resp struct {
		Data []NodeDTO `json:"data"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/nodes", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	if len(resp.Data) != 2 {
		t.Fatalf("nodes = %d, want 2", len(resp.Data))
	}
	// Базовый узел всегда имеет строку параметров.
	if resp.Data[0].Name != domain.BaseName || resp.Data[0].LastCalibrationAt == nil {
		t.Errorf("base node must come first with its params row, got %+v", resp.Data[0])
	}
	// Узел ещё не калиброван.
	if resp.Data[1].LastCalibrationAt != nil {
		t.Errorf("uncalibrated node must have no last calibration, got %+v", resp.Data[1])
	}
}

func TestGetNodeAfterMaintain(t *testing.T) {
	srv, eng := testServer(t)

	if _, err := eng.Maintain(context.Background()); err != nil {
		t.Fatalf("Maintain: %v", err)
	}

	var resp struct {
		Data NodeDTO `json:"data"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/nodes/rabi", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	if resp.Data.LastCalibrationAt == nil {
		t.Fatal("calibrated node must expose last calibration time")
	}
	if len(resp.Data.LastValues) != 2 {
		t.Errorf("last values = %v, want a and b", resp.Data.LastValues)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	srv, _ := testServer(t)

	var resp ErrorResponse
	if code := getJSON(t, srv.URL+"/api/v1/nodes/ghost", &resp); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("code = %s, want %s", resp.Error.Code, ErrCodeNotFound)
	}
}

func TestGetNodeHistory(t *testing.T) {
	srv, eng := testServer(t)

	if _, err := eng.Maintain(context.Background()); err != nil {
		t.Fatalf("Maintain: %v", err)
	}

	var resp struct {
		Data  []HistoryRowDTO `json:"data"`
		Total int             `json:"total"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/nodes/rabi/history?limit=10", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
	if len(resp.Data) == 1 && resp.Data[0].Log == "" {
		t.Error("history row must carry the calibration log")
	}
}

func TestGetNodeHistoryBadLimit(t *testing.T) {
	srv, _ := testServer(t)

	var resp ErrorResponse
	if code := getJSON(t, srv.URL+"/api/v1/nodes/rabi/history?limit=zero", &resp); code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestListSchedulesEmpty(t *testing.T) {
	srv, _ := testServer(t)

	var resp struct {
		Data []scheduler.Schedule `json:"data"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/schedules", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(resp.Data) != 0 {
		t.Errorf("schedules = %v, want empty", resp.Data)
	}
}
