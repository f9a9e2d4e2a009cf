// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий обслуживания
//   - consumer.go   — приём заявок на внеплановое обслуживание
//     (RequestConsumer: кривые конверты в DLQ, отказ запуска — ack)
//
// Типы сообщений:
//   - node.recalibrated — узел получил свежий фит
//   - node.failed       — калибровка или диагностика узла отказала
//   - run.completed     — запуск обслуживания завершён
//   - maintain.request  — заявка на внеплановое обслуживание
//
// Exchanges:
//   - calibration.events   — topic, события обслуживания
//   - calibration.requests — direct, заявки на обслуживание
//   - calibration.dlq      — dead letter queue
//
// Публикация событий необязательна: демон работает и без брокера,
// отказ публикации логируется и не прерывает обслуживание.
package mq
