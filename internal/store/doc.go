// Package store реализует хранилище истории калибровочных параметров.
//
// Контракт (ParameterStore) — append-only история строк с отметками
// времени, по одному логическому потоку на узел графа (table_key).
//
// Структура:
//   - store.go    — контракт ParameterStore + HistoryReader
//   - postgres.go — реализация поверх Postgres (pgx)
//   - memory.go   — реализация в памяти для тестов и dry-run
//   - errors.go   — sentinel-ошибки хранилища
package store
