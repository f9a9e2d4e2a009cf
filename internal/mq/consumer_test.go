package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// fakeAcknowledger фиксирует исход доставки.
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error { f.acked = true; return nil }

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func requestBody(t *testing.T, msgType MessageType, roots []string) []byte {
	t.Helper()
	body, err := json.Marshal(&Message{
		ID:        "msg-1",
		Type:      msgType,
		Payload:   MaintainRequestPayload{Roots: roots},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func testConsumer(maintain MaintainFunc) *RequestConsumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRequestConsumer(nil, logger, maintain)
}

func TestHandleRunsMaintainAndAcks(t *testing.T) {
	var got MaintainRequest
	c := testConsumer(func(_ context.Context, req MaintainRequest) error {
		got = req
		return nil
	})

	ack := &fakeAcknowledger{}
	c.handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         requestBody(t, MessageTypeMaintainRequest, []string{"rabi"}),
	})

	if !ack.acked || ack.nacked {
		t.Fatalf("delivery must be acked, got %+v", ack)
	}
	if got.MessageID != "msg-1" || len(got.Roots) != 1 || got.Roots[0] != "rabi" {
		t.Errorf("request = %+v, want msg-1 with root rabi", got)
	}
}

func TestHandleAcksFailedMaintainRun(t *testing.T) {
	c := testConsumer(func(context.Context, MaintainRequest) error {
		return errors.New("calibration failed at node rabi")
	})

	ack := &fakeAcknowledger{}
	c.handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         requestBody(t, MessageTypeMaintainRequest, nil),
	})

	// Отказ обслуживания — исход запуска, не повод возвращать заявку.
	if !ack.acked || ack.nacked {
		t.Fatalf("failed run must still ack the request, got %+v", ack)
	}
}

func TestHandleDeadLettersMalformedBody(t *testing.T) {
	called := false
	c := testConsumer(func(context.Context, MaintainRequest) error {
		called = true
		return nil
	})

	ack := &fakeAcknowledger{}
	c.handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte("{not json"),
	})

	if called {
		t.Fatal("malformed request must not start a maintain run")
	}
	if !ack.nacked || ack.requeue {
		t.Fatalf("malformed request must be nacked without requeue, got %+v", ack)
	}
}

func TestHandleDeadLettersWrongMessageType(t *testing.T) {
	called := false
	c := testConsumer(func(context.Context, MaintainRequest) error {
		called = true
		return nil
	})

	ack := &fakeAcknowledger{}
	c.handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         requestBody(t, MessageTypeRunCompleted, nil),
	})

	if called {
		t.Fatal("wrong-typed message must not start a maintain run")
	}
	if !ack.nacked || ack.requeue {
		t.Fatalf("wrong-typed message must go to the DLQ, got %+v", ack)
	}
}

func TestDecodeMaintainRequestDefaultsToAllRoots(t *testing.T) {
	req, err := decodeMaintainRequest(requestBody(t, MessageTypeMaintainRequest, nil))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(req.Roots) != 0 {
		t.Errorf("roots = %v, want empty (all sinks)", req.Roots)
	}
}
