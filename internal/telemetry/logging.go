package telemetry

import (
	"context"
	"log/slog"
	"os"
)

// LogLevel читает уровень логирования из LOG_LEVEL.
// Неизвестное или пустое значение означает INFO.
func LogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger собирает корневой логгер процесса и ставит его
// глобальным. LOG_FORMAT=text включает текстовый вывод для
// разработки, всё остальное пишется JSON'ом. На уровне DEBUG в
// записи добавляется источник.
func SetupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     LogLevel(),
		AddSource: LogLevel() == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// Ключи контекста логирования.
type ctxKey string

const (
	// CtxLogger — ключ логгера в контексте.
	CtxLogger ctxKey = "logger"
)

// WithLogger кладёт логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext достаёт логгер из контекста; без него — глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithGraph возвращает логгер с атрибутом имени графа.
func WithGraph(logger *slog.Logger, graph string) *slog.Logger {
	return logger.With("graph", graph)
}

// WithNode возвращает логгер с атрибутом имени узла.
func WithNode(logger *slog.Logger, node string) *slog.Logger {
	return logger.With("node", node)
}

// WithRun возвращает логгер с атрибутом идентификатора запуска.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}
