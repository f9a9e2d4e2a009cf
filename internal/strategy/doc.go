// Package strategy определяет интерфейс измерения и обработки данных
// для узлов калибровочного графа.
//
// Strategy — capability-интерфейс: узел получает привязку при
// построении графа и никогда не наследует измерительную логику.
// Конкретные стратегии (фит-модели, скриптинг приборов) живут за
// пределами движка и подключаются через Registry по имени из
// описания графа.
//
// Структура:
//   - strategy.go — интерфейс Strategy, Observation, AnalyzeResult, LogBuffer
//   - registry.go — реестр фабрик стратегий
//   - simulated.go — симулированная линейная калибровка (тесты, dry-run)
//   - options.go  — хелперы для опций узла
package strategy
