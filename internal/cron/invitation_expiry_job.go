package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/internal/invitations"
	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/outbox"
	"github.com/carenest/carenest-backend/pkg/outbox/payloads"
)

const invitationExpiryBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type dueInvitationReader interface {
	ListDuePending(ctx context.Context, now time.Time, limit int) ([]models.Invitation, error)
}

type expiringInvitationRepo interface {
	MarkExpired(ctx context.Context, id uuid.UUID) (int64, error)
}

type invitationRepoFactory func(tx *gorm.DB) expiringInvitationRepo

func defaultInvitationRepo(tx *gorm.DB) expiringInvitationRepo {
	return invitations.NewRepository(tx)
}

// InvitationExpiryJobParams configure the pending invitation sweep.
type InvitationExpiryJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Reader      dueInvitationReader
	Outbox      outboxEmitter
	RepoFactory invitationRepoFactory
	BatchSize   int
}

// NewInvitationExpiryJob builds the job that expires overdue pending
// invitations and notifies the inviter.
func NewInvitationExpiryJob(params InvitationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("invitation reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultInvitationRepo
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = invitationExpiryBatchSize
	}
	return &invitationExpiryJob{
		logg:        params.Logger,
		db:          params.DB,
		reader:      params.Reader,
		events:      params.Outbox,
		repoFactory: repoFactory,
		batch:       batch,
		now:         time.Now,
	}, nil
}

type invitationExpiryJob struct {
	logg        *logger.Logger
	db          txRunner
	reader      dueInvitationReader
	events      outboxEmitter
	repoFactory invitationRepoFactory
	batch       int
	now         func() time.Time
}

func (j *invitationExpiryJob) Name() string { return "invitation-expiry" }

func (j *invitationExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.reader.ListDuePending(ctx, now, j.batch)
	if err != nil {
		return fmt.Errorf("query due invitations: %w", err)
	}

	var errs []error
	expired := 0
	for i := range due {
		if err := j.expireInvitation(ctx, &due[i], now); err != nil {
			errs = append(errs, fmt.Errorf("expire invitation %s: %w", due[i].ID, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"expired": expired,
	})
	j.logg.Info(logCtx, "invitation expiry sweep complete")
	return multierr.Combine(errs...)
}

func (j *invitationExpiryJob) expireInvitation(ctx context.Context, inv *models.Invitation, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := j.repoFactory(tx).MarkExpired(ctx, inv.ID)
		if err != nil {
			return err
		}
		// Another worker or an accept raced us; nothing to announce.
		if affected == 0 {
			return nil
		}
		familyName := ""
		if inv.Family != nil {
			familyName = inv.Family.Name
		}
		return j.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvitationDecided,
			AggregateType: enums.AggregateInvitation,
			AggregateID:   inv.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.InvitationDecidedEvent{
				InvitationID: inv.ID,
				FamilyID:     inv.FamilyID,
				FamilyName:   familyName,
				Email:        inv.Email,
				Status:       enums.InvitationStatusExpired,
				InvitedBy:    inv.InvitedBy,
			},
		})
	})
}
