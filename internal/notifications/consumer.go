package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/outbox/payloads"
	"github.com/carenest/carenest-backend/pkg/outbox/registry"
)

// ConsumerName identifies this worker in idempotency keys.
const ConsumerName = "notify-worker"

type pusher interface {
	Push(ctx context.Context, input PushInput) (*NotificationDTO, error)
}

type userLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type processedMarker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns resolved domain events into feed notifications. Each
// event is processed at most once per worker via the idempotency marks.
type Consumer struct {
	notifier pusher
	users    userLookup
	idem     processedMarker
	logg     *logger.Logger
}

// ConsumerParams wires the consumer dependencies.
type ConsumerParams struct {
	Notifier    pusher
	Users       userLookup
	Idempotency processedMarker
	Logger      *logger.Logger
}

// NewConsumer validates dependencies and builds the consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification consumer requires a notifier")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("notification consumer requires a user lookup")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("notification consumer requires an idempotency manager")
	}
	return &Consumer{
		notifier: params.Notifier,
		users:    params.Users,
		idem:     params.Idempotency,
		logg:     params.Logger,
	}, nil
}

// Handle fans a resolved event out to the affected users' feeds. A
// failure clears the idempotency mark so the delivery can be retried.
func (c *Consumer) Handle(ctx context.Context, resolved *registry.ResolvedEvent) error {
	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		return registry.NewNonRetryableError(fmt.Errorf("invalid event id %q", resolved.Envelope.EventID))
	}
	processed, err := c.idem.CheckAndMarkProcessed(ctx, ConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("check idempotency: %w", err)
	}
	if processed {
		return nil
	}

	if err := c.dispatch(ctx, resolved); err != nil {
		if delErr := c.idem.Delete(ctx, ConsumerName, eventID); delErr != nil && c.logg != nil {
			c.logg.Error(c.logg.WithField(ctx, "event_id", eventID.String()), "clear idempotency mark", delErr)
		}
		return err
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, resolved *registry.ResolvedEvent) error {
	switch payload := resolved.Payload.(type) {
	case *payloads.MessageSentEvent:
		return c.handleMessageSent(ctx, payload)
	case *payloads.InvitationCreatedEvent:
		return c.handleInvitationCreated(ctx, payload)
	case *payloads.InvitationDecidedEvent:
		return c.handleInvitationDecided(ctx, payload)
	case *payloads.ReminderDueEvent:
		return c.handleReminderDue(ctx, payload)
	default:
		return registry.NewNonRetryableError(fmt.Errorf("unsupported payload type %T", resolved.Payload))
	}
}

func (c *Consumer) handleMessageSent(ctx context.Context, payload *payloads.MessageSentEvent) error {
	link := "/conversations/" + payload.ConversationID.String()
	for _, recipient := range payload.RecipientIDs {
		_, err := c.notifier.Push(ctx, PushInput{
			UserID: recipient,
			Type:   enums.NotificationTypeChatMessage,
			Title:  "New message from your care team",
			Body:   payload.Preview,
			Link:   &link,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) handleInvitationCreated(ctx context.Context, payload *payloads.InvitationCreatedEvent) error {
	// The invitee may not have an account yet; in that case there is no
	// feed to deliver to.
	user, err := c.users.FindByEmail(ctx, payload.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("lookup invitee: %w", err)
	}
	link := "/invitations"
	_, err = c.notifier.Push(ctx, PushInput{
		UserID: user.ID,
		Type:   enums.NotificationTypeFamilyInvitation,
		Title:  fmt.Sprintf("You have been invited to join %s", payload.FamilyName),
		Body:   fmt.Sprintf("Accept or decline the invitation before %s.", payload.ExpiresAt.Format("Jan 2, 2006")),
		Link:   &link,
	})
	return err
}

func (c *Consumer) handleInvitationDecided(ctx context.Context, payload *payloads.InvitationDecidedEvent) error {
	var verb string
	switch payload.Status {
	case enums.InvitationStatusAccepted:
		verb = "accepted"
	case enums.InvitationStatusDeclined:
		verb = "declined"
	case enums.InvitationStatusExpired:
		verb = "expired"
	default:
		return registry.NewNonRetryableError(fmt.Errorf("unexpected invitation status %q", payload.Status))
	}

	var body string
	if payload.Status == enums.InvitationStatusExpired {
		body = fmt.Sprintf("The invitation for %s expired before it was answered.", payload.Email)
	} else {
		body = fmt.Sprintf("%s %s your invitation to %s.", payload.Email, verb, payload.FamilyName)
	}
	link := "/family/invitations"
	_, err := c.notifier.Push(ctx, PushInput{
		UserID: payload.InvitedBy,
		Type:   enums.NotificationTypeFamilyInvitation,
		Title:  fmt.Sprintf("Invitation %s", verb),
		Body:   body,
		Link:   &link,
	})
	return err
}

func (c *Consumer) handleReminderDue(ctx context.Context, payload *payloads.ReminderDueEvent) error {
	target := payload.OwnerUserID
	if payload.AssignedToUserID != nil {
		target = *payload.AssignedToUserID
	}
	link := "/reminders/" + payload.ReminderID.String()
	_, err := c.notifier.Push(ctx, PushInput{
		UserID: target,
		Type:   enums.NotificationTypeReminderDue,
		Title:  payload.Title,
		Body:   fmt.Sprintf("Due at %s.", payload.ScheduledAt.Format("3:04 PM, Jan 2")),
		Link:   &link,
	})
	return err
}
