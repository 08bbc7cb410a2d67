// Package events publishes ledger domain events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sjperalta/fintera-cashflow/pkg/logger"
)

// Event types
const (
	TypeEntryConfirmed = "entry.confirmed"
	TypeEntryReversed  = "entry.reversed"
	TypeEntrySkipped   = "entry.skipped"
	TypeEntryUnskipped = "entry.unskipped"
	TypeEntriesOverdue = "entries.overdue"
)

// Event is the envelope every message is published in
type Event struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	OrganizationID uint            `json:"organization_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload"`
}

// New wraps payload in an envelope with a fresh id
func New(eventType string, orgID uint, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		OrganizationID: orgID,
		OccurredAt:     time.Now().UTC(),
		Payload:        body,
	}, nil
}

// Key groups an organization's events on the same partition
func (e Event) Key() string {
	return fmt.Sprintf("org-%d", e.OrganizationID)
}

// Publisher delivers events to a broker
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the application log
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event Event) error {
	logger.Log.InfoContext(ctx, "event published",
		slog.String("event_id", event.ID),
		slog.String("type", event.Type),
		slog.Uint64("organization_id", uint64(event.OrganizationID)),
		slog.String("payload", string(event.Payload)),
	)
	return nil
}

func (LogPublisher) Close() error { return nil }

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                        { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the type of every published event in order
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Options configures the broker backed publishers
type Options struct {
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string
}

// Open returns the publisher for broker: none, log, kafka or amqp
func Open(broker string, opts Options) (Publisher, error) {
	switch broker {
	case "", "none":
		return NopPublisher{}, nil
	case "log":
		return LogPublisher{}, nil
	case "kafka":
		return NewKafkaPublisher(opts.KafkaBrokers, opts.KafkaTopic), nil
	case "amqp":
		return NewAMQPPublisher(opts.AMQPURL, opts.AMQPExchange)
	}
	return nil, fmt.Errorf("unknown events broker %q", broker)
}
