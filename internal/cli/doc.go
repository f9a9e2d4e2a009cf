// Package cli содержит команды инструмента autocal.
//
// Команды работают локально с файлом описания графа: парсят его,
// строят граф и гоняют движок обслуживания поверх выбранного
// хранилища (memory для dry-run, postgres для стенда). Исключение —
// request: заявка уходит в очередь демона через брокер.
//
// Структура:
//   - setup.go    — загрузка описания, выбор хранилища, сборка движка
//   - graph.go    — validate, graph, strategies
//   - maintain.go — maintain, request, calibrate
//   - history.go  — history
//   - output.go   — табличный и JSON вывод
package cli
