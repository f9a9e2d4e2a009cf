package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Ошибки стратегий.
var (
	// ErrStrategyNotFound — имя стратегии не найдено в реестре.
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrInvalidOptions — невалидные опции стратегии.
	ErrInvalidOptions = errors.New("invalid strategy options")

	// ErrScanFailed — измерение не удалось выполнить.
	ErrScanFailed = errors.New("scan failed")
)

// ScanMode — режим измерения.
type ScanMode string

const (
	// ScanQuick — быстрое прореженное измерение для проверки данных.
	ScanQuick ScanMode = "quick"

	// ScanFull — полное измерение для настоящей калибровки.
	ScanFull ScanMode = "full"
)

// Observation — сырое наблюдение одного измерения.
//
// X — точки свипа, Y — измеренный отклик той же длины.
type Observation struct {
	X []float64
	Y []float64
}

// Len возвращает количество точек наблюдения.
func (o Observation) Len() int {
	return len(o.X)
}

// ErrorKind — классификация неудачного фита.
type ErrorKind string

const (
	// ErrKindNone — фит успешен.
	ErrKindNone ErrorKind = ""

	// ErrKindFittingFailure — фит не сошёлся.
	ErrKindFittingFailure ErrorKind = "FITTING_FAILURE"

	// ErrKindBadFitting — фит сошёлся, но вне допустимого семейства параметров.
	ErrKindBadFitting ErrorKind = "BAD_FITTING"
)

// AnalyzeResult — результат обработки наблюдения.
type AnalyzeResult struct {
	// Succeeded — true, если фит дал доверенные параметры.
	Succeeded bool

	// ErrKind — вид ошибки при Succeeded == false.
	ErrKind ErrorKind

	// Values — подобранные значения в порядке ParamKeys узла.
	Values []float64
}

// Strategy — интерфейс измерения и обработки данных одного узла.
//
// Каждый узел графа получает ровно одну привязку Strategy при
// построении. Любая специфика конкретного измерения (модель фита,
// скриптинг приборов) — это реализация этого интерфейса, а не
// наследник узла.
//
// Все вызовы блокирующие и строго последовательные: приборы —
// эксклюзивно удерживаемый ресурс всего графа.
type Strategy interface {
	// Scan выполняет измерение. deps — значения зависимых параметров
	// в порядке DependentParamKeys узла.
	Scan(ctx context.Context, deps []float64, mode ScanMode) (Observation, error)

	// BadData возвращает true, если наблюдение испорчено
	// (нет сигнала, прибор рассинхронизирован и т.п.).
	BadData(obs Observation) bool

	// TestInSpec проверяет, согласуется ли наблюдение с целевыми
	// параметрами в пределах допуска.
	TestInSpec(obs Observation, target []float64) bool

	// Analyze извлекает параметры из наблюдения (фит).
	Analyze(obs Observation) AnalyzeResult

	// Log возвращает накопленный диагностический лог и очищает буфер.
	Log() string
}

// LogBuffer — накопитель диагностического лога стратегии.
//
// Буфер опустошается вызовом Drain: текст попадает в строку истории
// и не дублируется в следующих записях.
type LogBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

// Printf добавляет строку в лог.
func (l *LogBuffer) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.b.Len() > 0 {
		l.b.WriteByte('\n')
	}
	l.b.WriteString(fmt.Sprintf(format, args...))
}

// Drain возвращает накопленный текст и очищает буфер.
func (l *LogBuffer) Drain() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.b.String()
	l.b.Reset()
	return s
}
