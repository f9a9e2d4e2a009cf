package api

import (
	"time"

	"github.com/shaiso/Autocal/internal/engine"
	"github.com/shaiso/Autocal/internal/store"
)

// GraphDTO — сводка по графу.
type GraphDTO struct {
	Name  string   `json:"name"`
	RunID string   `json:"run_id"`
	Nodes int      `json:"nodes"`
	Order []string `json:"order"`
	Roots []string `json:"roots"`
}

// NodeDTO — статус одного узла.
type NodeDTO struct {
	Name              string             `json:"name"`
	IsBase            bool               `json:"is_base"`
	ParamKeys         []string           `json:"param_keys"`
	Dependents        []string           `json:"dependents,omitempty"`
	ValidityWindowSec int64              `json:"validity_window_sec"`
	CalibrationFailed bool               `json:"calibration_failed"`
	LastCalibrationAt *time.Time         `json:"last_calibration_at,omitempty"`
	LastValues        map[string]float64 `json:"last_values,omitempty"`
}

// HistoryRowDTO — одна строка истории узла.
type HistoryRowDTO struct {
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
	Log       string             `json:"log,omitempty"`
}

func toGraphDTO(g *engine.Graph) GraphDTO {
	return GraphDTO{
		Name:  g.Name,
		RunID: g.RunID.String(),
		Nodes: g.Size(),
		Order: g.Order(),
		Roots: g.Roots(),
	}
}

func toNodeDTO(n *engine.CalibrationNode, lastRow *store.Row) NodeDTO {
	dto := NodeDTO{
		Name:              n.Name(),
		IsBase:            n.IsBase(),
		ParamKeys:         n.ParamKeys(),
		Dependents:        n.Dependents(),
		ValidityWindowSec: int64(n.ValidityWindow().Seconds()),
		CalibrationFailed: n.CalibrationFailed(),
	}
	if lastRow != nil {
		ts := lastRow.Timestamp
		dto.LastCalibrationAt = &ts
		dto.LastValues = lastRow.Values
	}
	return dto
}

func toHistoryDTO(rows []store.Row) []HistoryRowDTO {
	out := make([]HistoryRowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryRowDTO{
			Timestamp: row.Timestamp,
			Values:    row.Values,
			Log:       row.Log,
		})
	}
	return out
}
