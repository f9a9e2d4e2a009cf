// Package engine реализует граф калибровок и движок обслуживания.
//
// Структура:
//   - dag.go — построение графа: валидация ссылок, трёхцветный DFS,
//     топологический порядок
//   - node.go — CalibrationNode: maintain/checkState, флаги запуска,
//     разрешение зависимых параметров
//   - diagnose.go — классификация данных и рекурсивный поиск
//     первопричины, полная калибровка
//   - engine.go — MaintenanceEngine: запуск обслуживания, отчёт,
//     ручная калибровка
//   - errors.go — ошибки построения и обслуживания
package engine
