package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/internal/reminders"
	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/outbox"
	"github.com/carenest/carenest-backend/pkg/outbox/payloads"
)

const (
	reminderDueBatchSize = 200
	defaultDueLookahead  = 30 * time.Minute
)

type dueReminderReader interface {
	ListDue(ctx context.Context, now time.Time, lookahead time.Duration, limit int) ([]models.Reminder, error)
}

type notifyingReminderRepo interface {
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error
}

type reminderRepoFactory func(tx *gorm.DB) notifyingReminderRepo

func defaultReminderRepo(tx *gorm.DB) notifyingReminderRepo {
	return reminders.NewRepository(tx)
}

// ReminderDueJobParams configure the due reminder sweep.
type ReminderDueJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Reader      dueReminderReader
	Outbox      outboxEmitter
	RepoFactory reminderRepoFactory
	Lookahead   time.Duration
	BatchSize   int
}

// NewReminderDueJob builds the job that emits a due event for each
// reminder entering its notification window.
func NewReminderDueJob(params ReminderDueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("reminder reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultReminderRepo
	}
	lookahead := params.Lookahead
	if lookahead <= 0 {
		lookahead = defaultDueLookahead
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = reminderDueBatchSize
	}
	return &reminderDueJob{
		logg:        params.Logger,
		db:          params.DB,
		reader:      params.Reader,
		events:      params.Outbox,
		repoFactory: repoFactory,
		lookahead:   lookahead,
		batch:       batch,
		now:         time.Now,
	}, nil
}

type reminderDueJob struct {
	logg        *logger.Logger
	db          txRunner
	reader      dueReminderReader
	events      outboxEmitter
	repoFactory reminderRepoFactory
	lookahead   time.Duration
	batch       int
	now         func() time.Time
}

func (j *reminderDueJob) Name() string { return "reminder-due" }

func (j *reminderDueJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.reader.ListDue(ctx, now, j.lookahead, j.batch)
	if err != nil {
		return fmt.Errorf("query due reminders: %w", err)
	}

	var errs []error
	notified := 0
	for i := range due {
		if err := j.notifyReminder(ctx, &due[i], now); err != nil {
			errs = append(errs, fmt.Errorf("notify reminder %s: %w", due[i].ID, err))
			continue
		}
		notified++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":       len(due),
		"notified":  notified,
		"lookahead": j.lookahead.String(),
	})
	j.logg.Info(logCtx, "reminder due sweep complete")
	return multierr.Combine(errs...)
}

// notifyReminder emits the due event and stamps the occurrence in one
// transaction. The stamp carries the reminder's scheduled time, not the
// sweep time, so the row only becomes eligible again once its schedule
// advances.
func (j *reminderDueJob) notifyReminder(ctx context.Context, reminder *models.Reminder, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		err := j.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReminderDue,
			AggregateType: enums.AggregateReminder,
			AggregateID:   reminder.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.ReminderDueEvent{
				ReminderID:       reminder.ID,
				OwnerUserID:      reminder.OwnerUserID,
				AssignedToUserID: reminder.AssignedToUserID,
				Type:             reminder.Type,
				Title:            reminder.Title,
				ScheduledAt:      reminder.ScheduledAt,
			},
		})
		if err != nil {
			return err
		}
		return j.repoFactory(tx).MarkNotified(ctx, reminder.ID, reminder.ScheduledAt)
	})
}
