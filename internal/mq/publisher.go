package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeNodeRecalibrated MessageType = "node.recalibrated"
	MessageTypeNodeFailed       MessageType = "node.failed"
	MessageTypeRunCompleted     MessageType = "run.completed"
	MessageTypeMaintainRequest  MessageType = "maintain.request"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NodeRecalibratedPayload — узел получил свежий фит.
type NodeRecalibratedPayload struct {
	Graph  string             `json:"graph"`
	RunID  uuid.UUID          `json:"run_id"`
	Node   string             `json:"node"`
	Values map[string]float64 `json:"values,omitempty"`
}

// NodeFailedPayload — калибровка или диагностика узла отказала.
type NodeFailedPayload struct {
	Graph  string    `json:"graph"`
	RunID  uuid.UUID `json:"run_id"`
	Node   string    `json:"node"`
	Reason string    `json:"reason"`
}

// RunCompletedPayload — запуск обслуживания завершён.
type RunCompletedPayload struct {
	Graph        string    `json:"graph"`
	RunID        uuid.UUID `json:"run_id"`
	Roots        []string  `json:"roots"`
	Recalibrated []string  `json:"recalibrated"`
	DurationMS   int64     `json:"duration_ms"`
	Status       string    `json:"status"` // SUCCEEDED или FAILED
	Error        string    `json:"error,omitempty"`
}

// MaintainRequestPayload — заявка на внеплановое обслуживание.
// Пустой Roots означает все стоки графа.
type MaintainRequestPayload struct {
	Roots []string `json:"roots,omitempty"`
}

// Publisher публикует события обслуживания в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishNodeRecalibrated публикует событие о свежем фите узла.
func (p *Publisher) PublishNodeRecalibrated(ctx context.Context, payload NodeRecalibratedPayload) error {
	return p.publishEvent(ctx, MessageTypeNodeRecalibrated, RoutingKeyNodeRecalibrated, payload)
}

// PublishNodeFailed публикует событие об отказе узла.
func (p *Publisher) PublishNodeFailed(ctx context.Context, payload NodeFailedPayload) error {
	return p.publishEvent(ctx, MessageTypeNodeFailed, RoutingKeyNodeFailed, payload)
}

// PublishRunCompleted публикует итог запуска обслуживания.
func (p *Publisher) PublishRunCompleted(ctx context.Context, payload RunCompletedPayload) error {
	return p.publishEvent(ctx, MessageTypeRunCompleted, RoutingKeyRunCompleted, payload)
}

// PublishMaintainRequest публикует заявку на внеплановое обслуживание.
// Потребитель: демон.
func (p *Publisher) PublishMaintainRequest(ctx context.Context, payload MaintainRequestPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeMaintainRequest,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, ExchangeRequests, RoutingKeyMaintain, msg)
}

func (p *Publisher) publishEvent(ctx context.Context, msgType MessageType, key RoutingKey, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, ExchangeEvents, key, msg)
}
