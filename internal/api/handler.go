package api

import (
	"log/slog"

	"github.com/shaiso/Autocal/internal/engine"
	"github.com/shaiso/Autocal/internal/scheduler"
	"github.com/shaiso/Autocal/internal/store"
)

// Handler — обработчик статусного API.
//
// API строго read-only: обслуживание запускается планировщиком или
// заявкой через брокер, не HTTP-запросом.
type Handler struct {
	graph     *engine.Graph
	history   store.HistoryReader
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Graph   *engine.Graph
	History store.HistoryReader

	// Scheduler опционален: без него /schedules возвращает пустой список.
	Scheduler *scheduler.Scheduler

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		graph:     cfg.Graph,
		history:   cfg.History,
		scheduler: cfg.Scheduler,
		logger:    logger,
	}
}
