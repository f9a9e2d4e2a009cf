// Package api содержит статусный HTTP API демона.
//
// API строго read-only: обслуживание запускается планировщиком или
// заявкой через брокер, не HTTP-запросом.
//
// Структура:
//   - handler.go          — Handler с зависимостями (граф, история, планировщик)
//   - routes.go           — регистрация маршрутов
//   - graph_handler.go    — граф, узлы, история
//   - schedule_handler.go — расписания
//   - dto.go              — DTO ответов
//   - response.go         — helpers для JSON ответов
//   - middleware.go       — Logging, Recovery
//
// Маршруты:
//   - GET /api/v1/graph                — сводка по графу
//   - GET /api/v1/nodes                — статус всех узлов
//   - GET /api/v1/nodes/{name}         — статус узла
//   - GET /api/v1/nodes/{name}/history — история узла
//   - GET /api/v1/schedules            — расписания обслуживания
package api
