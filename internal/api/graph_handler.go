package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shaiso/Autocal/internal/store"
)

// GetGraph возвращает сводку по графу.
func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	Success(w, toGraphDTO(h.graph))
}

// ListNodes возвращает статус всех узлов в топологическом порядке.
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	order := h.graph.Order()
	nodes := make([]NodeDTO, 0, len(order))

	for _, name := range order {
		n := h.graph.Node(name)

		lastRow, err := h.lastRow(r, n.TableKey())
		if err != nil {
			InternalError(w, h.logger, err)
			return
		}
		nodes = append(nodes, toNodeDTO(n, lastRow))
	}

	List(w, nodes, len(nodes))
}

// GetNode возвращает статус одного узла.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	n := h.graph.Node(name)
	if n == nil {
		NotFound(w, "node not found: "+name)
		return
	}

	lastRow, err := h.lastRow(r, n.TableKey())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}
	Success(w, toNodeDTO(n, lastRow))
}

// GetNodeHistory возвращает историю узла, от новых строк к старым.
// Параметр limit ограничивает количество строк (default: 20).
func (h *Handler) GetNodeHistory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	n := h.graph.Node(name)
	if n == nil {
		NotFound(w, "node not found: "+name)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	rows, err := h.history.History(r.Context(), n.TableKey(), limit)
	if HandleStoreError(w, h.logger, err, "no history for node "+name) {
		return
	}

	List(w, toHistoryDTO(rows), len(rows))
}

// lastRow возвращает последнюю строку истории узла или nil, если
// истории ещё нет.
func (h *Handler) lastRow(r *http.Request, tableKey string) (*store.Row, error) {
	rows, err := h.history.History(r.Context(), tableKey, 1)
	if errors.Is(err, store.ErrNoRows) || errors.Is(err, store.ErrNotInitialized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
