package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"studyhub-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler is a function that processes an event.
type EventHandler func(ctx context.Context, event events.Event) error

// ErrorFunc receives delivery problems the subscriber cannot return to a caller.
type ErrorFunc func(subject string, err error)

// Subscriber handles listening for canvas events from NATS.
type Subscriber struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	onError ErrorFunc
	ctxs    []jetstream.ConsumeContext
}

func NewSubscriber(url string, onError ErrorFunc) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Subscriber{nc: nc, js: js, onError: onError}, nil
}

// Subscribe registers a durable consumer for the given event type.
func (s *Subscriber) Subscribe(ctx context.Context, eventType, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: Subject(eventType),
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
		InactiveThreshold: time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := decode(msg)
		if err != nil {
			s.onError(msg.Subject(), err)
			// Malformed payloads will never succeed.
			_ = msg.Term()
			return
		}
		if err := handler(ctx, event); err != nil {
			s.onError(msg.Subject(), err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.ctxs = append(s.ctxs, cc)
	return nil
}

func decode(msg jetstream.Msg) (events.Event, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Data(), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal event data: %w", err)
	}
	return eventFrom(msg.Subject(), msg.Headers(), payload), nil
}

func eventFrom(subject string, h nats.Header, payload map[string]interface{}) events.BaseEvent {
	eventType := h.Get(eventTypeHeader)
	if eventType == "" {
		eventType = strings.TrimPrefix(subject, SubjectPrefix)
	}
	occurred, err := time.Parse(time.RFC3339Nano, h.Get(occurredHeader))
	if err != nil {
		occurred = time.Now()
	}
	return events.BaseEvent{Type: eventType, Data: payload, OccurredAt: occurred}
}

func (s *Subscriber) Close() {
	for _, cc := range s.ctxs {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
