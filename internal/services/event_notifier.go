package services

import (
	"context"
	"log/slog"

	"github.com/skillbadge/assessment-service/internal/events"
	"github.com/skillbadge/assessment-service/internal/models"
)

// EventNotifier publishes domain events for downstream consumers.
// Publishing is best effort, a failed publish never fails the caller.
type EventNotifier interface {
	PaymentVerified(ctx context.Context, txn *models.Transaction, paymentRequestID string)
	AssessmentChanged(ctx context.Context, eventType events.EventType, assessment *models.Assessment, actorID *string)
	AssessorRequestChanged(ctx context.Context, eventType events.EventType, request *models.AssessorRequest)
}

type eventNotifier struct {
	eventPublisher events.EventPublisher
	logger         *slog.Logger
}

func NewEventNotifier(eventPublisher events.EventPublisher, logger *slog.Logger) EventNotifier {
	return &eventNotifier{
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

func (n *eventNotifier) PaymentVerified(ctx context.Context, txn *models.Transaction, paymentRequestID string) {
	event := events.NewPaymentVerifiedEvent(events.PaymentVerifiedEvent{
		PaymentID:        txn.PaymentID,
		PaymentRequestID: paymentRequestID,
		UserID:           txn.UserID,
		Amount:           txn.Amount.StringFixed(2),
		Source:           txn.Source,
	})
	n.publish(ctx, event)
}

func (n *eventNotifier) AssessmentChanged(ctx context.Context, eventType events.EventType, assessment *models.Assessment, actorID *string) {
	n.publish(ctx, events.NewAssessmentEvent(eventType, assessment, actorID))
}

func (n *eventNotifier) AssessorRequestChanged(ctx context.Context, eventType events.EventType, request *models.AssessorRequest) {
	n.publish(ctx, events.NewAssessorEvent(eventType, request))
}

func (n *eventNotifier) publish(ctx context.Context, event *events.Event) {
	if n.eventPublisher == nil {
		return
	}
	if err := n.eventPublisher.PublishEvent(ctx, event); err != nil {
		n.logger.Warn("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"key", event.Key,
			"error", err)
		return
	}
	n.logger.Debug("Event published", "event_type", event.Type, "event_id", event.ID)
}
