package store

import (
	"context"
	"time"
)

// ParameterStore — контракт хранилища истории параметров.
//
// История каждого узла адресуется ключом tableKey и является строго
// append-only: каждое принятое наблюдение (свежий фит или
// подтверждённая in-spec перепроверка) добавляет новую строку с
// отметкой времени; строки никогда не изменяются и не удаляются.
// "Последние" параметры — самая свежая строка по времени.
//
// Запись ведётся одним писателем на tableKey (движок однопоточный),
// поэтому контракт не требует от реализации блокировок записи.
type ParameterStore interface {
	// Initialize готовит историю для узла: регистрирует tableKey
	// и список его параметров. Повторный вызов для существующего
	// ключа безопасен.
	Initialize(ctx context.Context, tableKey string, paramKeys []string) error

	// LastTimestamp возвращает отметку времени последней строки.
	// Если истории ещё нет, возвращает ErrNoRows.
	LastTimestamp(ctx context.Context, tableKey string) (time.Time, error)

	// LastParams возвращает значения последней строки в порядке
	// запрошенных ключей. Если истории нет — ErrNoRows; если в
	// строке отсутствует запрошенный ключ — ErrParamMissing.
	LastParams(ctx context.Context, tableKey string, paramKeys []string) ([]float64, error)

	// Insert добавляет новую строку с текущим временем,
	// значениями параметров и текстом диагностического лога.
	Insert(ctx context.Context, tableKey string, values map[string]float64, log string) error
}

// Row — одна строка истории калибровок.
type Row struct {
	// Timestamp — время записи строки.
	Timestamp time.Time `json:"timestamp"`

	// Values — значения параметров: имя → значение.
	Values map[string]float64 `json:"values"`

	// Log — диагностический лог стратегии на момент записи.
	Log string `json:"log,omitempty"`
}

// HistoryReader — расширение контракта для инспекции истории.
//
// Движку обслуживания оно не нужно; используется CLI командой
// history и статусным API демона.
type HistoryReader interface {
	// History возвращает последние limit строк истории узла,
	// от новых к старым. limit <= 0 означает "без ограничения".
	History(ctx context.Context, tableKey string, limit int) ([]Row, error)
}
