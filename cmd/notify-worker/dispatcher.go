package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/outbox/registry"
)

type eventHandler interface {
	Handle(ctx context.Context, resolved *registry.ResolvedEvent) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Dispatcher reads published domain events off the notification
// subscription and feeds them to the notifications consumer.
type Dispatcher struct {
	subscription *pubsub.Subscriber
	registry     registryResolver
	handler      eventHandler
	logg         *logger.Logger
}

func NewDispatcher(subscription *pubsub.Subscriber, reg registryResolver, handler eventHandler, logg *logger.Logger) (*Dispatcher, error) {
	if subscription == nil {
		return nil, errors.New("notification subscription is required")
	}
	if reg == nil {
		return nil, errors.New("event registry is required")
	}
	if handler == nil {
		return nil, errors.New("event handler is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Dispatcher{
		subscription: subscription,
		registry:     reg,
		handler:      handler,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if d.process(ctx, msg.Attributes, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Malformed messages
// are acked because redelivery cannot fix them.
func (d *Dispatcher) process(ctx context.Context, attrs map[string]string, data []byte) bool {
	event, err := eventFromMessage(attrs, data)
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"event_type":     attrs["event_type"],
		"aggregate_type": attrs["aggregate_type"],
		"aggregate_id":   attrs["aggregate_id"],
		"event":          "notify.dispatch",
	})
	if err != nil {
		d.logg.Error(logCtx, "dropping malformed notification message", err)
		return true
	}

	resolved, err := d.registry.Resolve(event)
	if err != nil {
		d.logg.Error(logCtx, "dropping unresolvable notification message", err)
		return true
	}

	if err := d.handler.Handle(ctx, resolved); err != nil {
		var nonRetry registry.NonRetryableError
		if errors.As(err, &nonRetry) {
			d.logg.Error(logCtx, "dropping non-retryable notification message", err)
			return true
		}
		d.logg.Warn(d.logg.WithField(logCtx, "error", err.Error()), "notification handling failed, will retry")
		return false
	}
	return true
}

func eventFromMessage(attrs map[string]string, data []byte) (models.OutboxEvent, error) {
	var event models.OutboxEvent

	eventType := attrs["event_type"]
	if eventType == "" {
		return event, fmt.Errorf("missing event_type attribute")
	}
	aggregateType := attrs["aggregate_type"]
	if aggregateType == "" {
		return event, fmt.Errorf("missing aggregate_type attribute")
	}
	aggregateID, err := uuid.Parse(attrs["aggregate_id"])
	if err != nil {
		return event, fmt.Errorf("invalid aggregate_id attribute: %w", err)
	}
	if len(data) == 0 {
		return event, fmt.Errorf("empty payload")
	}

	event.EventType = enums.OutboxEventType(eventType)
	event.AggregateType = enums.OutboxAggregateType(aggregateType)
	event.AggregateID = aggregateID
	event.Payload = data
	if raw := attrs["created_at"]; raw != "" {
		if createdAt, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			event.CreatedAt = createdAt
		}
	}
	return event, nil
}
