// Package telemetry содержит настройку логирования и метрики.
//
// Структура:
//   - logging.go — slog: уровень и формат из переменных окружения,
//     передача логгера через контекст, атрибутные хелперы
//   - metrics.go — счётчики и гистограммы Prometheus
package telemetry
