package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/shaiso/Autocal/internal/domain"
	"github.com/shaiso/Autocal/internal/engine"
	"github.com/shaiso/Autocal/internal/parser"
	"github.com/shaiso/Autocal/internal/store"
	"github.com/shaiso/Autocal/internal/strategy"
	"github.com/shaiso/Autocal/internal/telemetry"
)

// loadSpec читает и валидирует описание графа из файла.
func loadSpec(path string) (*domain.GraphSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph file: %w", err)
	}
	defer f.Close()

	spec, err := parser.Parse(f)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// openStore открывает хранилище по имени: "memory" или "postgres".
// Возвращаемая функция освобождает ресурсы хранилища.
func openStore(ctx context.Context, kind string) (store.ParameterStore, store.HistoryReader, func(), error) {
	switch kind {
	case "memory":
		st := store.NewMemoryStore()
		return st, st, func() {}, nil

	case "postgres":
		pool, err := store.NewPool(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		st := store.NewPostgresStore(pool)
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return st, st, pool.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q (expected memory or postgres)", kind)
	}
}

// buildEngine загружает описание, строит граф и движок.
func buildEngine(ctx context.Context, path, storeKind string) (*engine.MaintenanceEngine, store.HistoryReader, func(), error) {
	spec, err := loadSpec(path)
	if err != nil {
		return nil, nil, nil, err
	}

	st, history, closeStore, err := openStore(ctx, storeKind)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := telemetry.SetupLogger()
	g, err := engine.Build(ctx, spec, strategy.DefaultRegistry(), st, logger)
	if err != nil {
		closeStore()
		return nil, nil, nil, err
	}

	return engine.New(g, logger), history, closeStore, nil
}
