package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	// ExchangeEvents — topic-обменник событий обслуживания.
	// Потребители привязывают собственные очереди по нужным ключам.
	ExchangeEvents Exchange = "calibration.events"

	// ExchangeRequests — заявки на внеплановое обслуживание.
	ExchangeRequests Exchange = "calibration.requests"

	// ExchangeDLQ — dead letter queue.
	ExchangeDLQ Exchange = "calibration.dlq"
)

// Queues — имена очередей.
const (
	QueueMaintainRequests Queue = "requests.maintain"
	QueueDLQRequests      Queue = "dlq.requests"
)

// Routing keys.
const (
	RoutingKeyNodeRecalibrated RoutingKey = "node.recalibrated"
	RoutingKeyNodeFailed       RoutingKey = "node.failed"
	RoutingKeyRunCompleted     RoutingKey = "run.completed"
	RoutingKeyMaintain         RoutingKey = "maintain"
	RoutingKeyDLQRequests      RoutingKey = "requests"
)

// SetupTopology объявляет обменники, очереди и привязки.
// Идемпотентна, вызывается демоном при старте.
func SetupTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeEvents, "topic"},
		{ExchangeRequests, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name),
			ex.kind,
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQRequests),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// Заявки на обслуживание ретраятся и после исчерпания уходят в DLQ.
		{QueueMaintainRequests, dlqArgs},
		{QueueDLQRequests, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			q.args,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueMaintainRequests, RoutingKeyMaintain, ExchangeRequests},
		{QueueDLQRequests, RoutingKeyDLQRequests, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),
			string(b.routingKey),
			string(b.exchange),
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}
