package services

import (
	"context"
	"log/slog"

	"github.com/sjperalta/fintera-cashflow/internal/events"
	"github.com/sjperalta/fintera-cashflow/internal/jobs"
	"github.com/sjperalta/fintera-cashflow/pkg/logger"
)

// EventService publishes domain events off the request path
type EventService struct {
	publisher events.Publisher
	worker    *jobs.Worker
}

func NewEventService(publisher events.Publisher, worker *jobs.Worker) *EventService {
	return &EventService{publisher: publisher, worker: worker}
}

// Emit builds the event now and hands delivery to the worker
func (s *EventService) Emit(eventType string, orgID uint, payload any) {
	event, err := events.New(eventType, orgID, payload)
	if err != nil {
		logger.Error("[Events] failed to build event", slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}

	s.worker.EnqueueAsync("publish "+eventType, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	})
}
