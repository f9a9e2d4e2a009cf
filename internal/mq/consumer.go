package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MaintainRequest — разобранная заявка на внеплановое обслуживание.
type MaintainRequest struct {
	// MessageID — идентификатор исходного сообщения.
	MessageID string

	// Roots — корни обслуживания. Пусто — все стоки графа.
	Roots []string
}

// MaintainFunc запускает обслуживание по заявке.
//
// Ошибка запуска — исход обслуживания, а не сбой доставки: узел уже
// помечен calibrationFailed и ждёт оператора, повтор заявки дал бы тот
// же результат. Заявка подтверждается в любом случае.
type MaintainFunc func(ctx context.Context, req MaintainRequest) error

// RequestConsumer слушает очередь requests.maintain и гонит каждую
// заявку в MaintainFunc. Prefetch жёстко равен 1: движок однопоточный,
// забирать у брокера больше одной заявки за раз бессмысленно.
type RequestConsumer struct {
	conn     *Connection
	logger   *slog.Logger
	maintain MaintainFunc
}

// NewRequestConsumer создаёт потребитель заявок на обслуживание.
func NewRequestConsumer(conn *Connection, logger *slog.Logger, maintain MaintainFunc) *RequestConsumer {
	return &RequestConsumer{
		conn:     conn,
		logger:   logger,
		maintain: maintain,
	}
}

// Run потребляет заявки до отмены контекста. Потеря канала не
// фатальна: потребитель ждёт восстановления соединения и продолжает.
func (c *RequestConsumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.listen()
		if err != nil {
			c.logger.Error("maintain request queue unavailable",
				"queue", QueueMaintainRequests,
				"error", err,
			)
		} else {
			c.logger.Info("consuming maintain requests", "queue", QueueMaintainRequests)
			c.drain(ctx, deliveries)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
			c.logger.Info("broker connection restored, resuming maintain requests")
		}
	}
}

// listen открывает поток доставок из очереди заявок.
func (c *RequestConsumer) listen() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(QueueMaintainRequests),
		"",    // consumer tag
		false, // auto-ack: подтверждаем после запуска обслуживания
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", QueueMaintainRequests, err)
	}
	return deliveries, nil
}

// drain обрабатывает доставки до закрытия потока или отмены контекста.
func (c *RequestConsumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery stream closed, waiting for broker")
				return
			}
			c.handle(ctx, raw)
		}
	}
}

// handle разбирает одну доставку и запускает обслуживание.
//
// Кривой конверт уходит в DLQ без повтора: валидным от переотправки
// он не станет. Отказ самого обслуживания заявку не отменяет — она
// подтверждается, итог запуска виден в событиях и флагах узлов.
func (c *RequestConsumer) handle(ctx context.Context, raw amqp.Delivery) {
	req, err := decodeMaintainRequest(raw.Body)
	if err != nil {
		c.logger.Error("malformed maintain request, dead-lettering",
			"queue", QueueMaintainRequests,
			"error", err,
		)
		raw.Nack(false, false)
		return
	}

	c.logger.Info("maintain request received",
		"message_id", req.MessageID,
		"roots", req.Roots,
	)

	if err := c.maintain(ctx, req); err != nil {
		c.logger.Error("requested maintain run failed",
			"message_id", req.MessageID,
			"error", err,
		)
	}
	raw.Ack(false)
}

// decodeMaintainRequest разбирает конверт заявки на обслуживание.
func decodeMaintainRequest(body []byte) (MaintainRequest, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return MaintainRequest{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if msg.Type != MessageTypeMaintainRequest {
		return MaintainRequest{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}

	// Payload после общего анмаршала — map; перегоняем в типизированную
	// структуру заявки.
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return MaintainRequest{}, fmt.Errorf("marshal payload: %w", err)
	}
	var payload MaintainRequestPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return MaintainRequest{}, fmt.Errorf("unmarshal payload: %w", err)
	}

	return MaintainRequest{MessageID: msg.ID, Roots: payload.Roots}, nil
}
