package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/outbox"
	"github.com/carenest/carenest-backend/pkg/outbox/payloads"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeInvitationReader struct {
	due []models.Invitation
	err error
}

func (f *fakeInvitationReader) ListDuePending(ctx context.Context, now time.Time, limit int) ([]models.Invitation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.due, nil
}

type fakeExpiringRepo struct {
	marked []uuid.UUID
	// already maps invitation IDs that were decided before the sweep
	// got to them.
	already map[uuid.UUID]bool
}

func (f *fakeExpiringRepo) MarkExpired(ctx context.Context, id uuid.UUID) (int64, error) {
	if f.already[id] {
		return 0, nil
	}
	f.marked = append(f.marked, id)
	return 1, nil
}

func newInvitationExpiryJob(t *testing.T, reader *fakeInvitationReader, repo *fakeExpiringRepo, events *fakeOutbox) *invitationExpiryJob {
	t.Helper()
	jobIface, err := NewInvitationExpiryJob(InvitationExpiryJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		DB:          fakeTxRunner{},
		Reader:      reader,
		Outbox:      events,
		RepoFactory: func(tx *gorm.DB) expiringInvitationRepo { return repo },
	})
	if err != nil {
		t.Fatalf("NewInvitationExpiryJob: %v", err)
	}
	job, ok := jobIface.(*invitationExpiryJob)
	if !ok {
		t.Fatalf("expected invitationExpiryJob, got %T", jobIface)
	}
	return job
}

func overdueInvitation(familyName string) models.Invitation {
	return models.Invitation{
		ID:        uuid.New(),
		FamilyID:  uuid.New(),
		Email:     "pat@example.com",
		Role:      enums.FamilyRoleMember,
		Status:    enums.InvitationStatusPending,
		InvitedBy: uuid.New(),
		ExpiresAt: time.Now().Add(-time.Hour),
		Family:    &models.Family{Name: familyName},
	}
}

func TestInvitationExpiryJobExpiresAndEmits(t *testing.T) {
	inv := overdueInvitation("Care Circle")
	reader := &fakeInvitationReader{due: []models.Invitation{inv}}
	repo := &fakeExpiringRepo{}
	events := &fakeOutbox{}
	job := newInvitationExpiryJob(t, reader, repo, events)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.marked) != 1 || repo.marked[0] != inv.ID {
		t.Fatalf("expected invitation marked expired, got %v", repo.marked)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.EventType != enums.EventInvitationDecided || event.AggregateID != inv.ID {
		t.Fatalf("unexpected event %+v", event)
	}
	payload, ok := event.Data.(payloads.InvitationDecidedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if payload.Status != enums.InvitationStatusExpired {
		t.Fatalf("expected expired status, got %s", payload.Status)
	}
	if payload.FamilyName != "Care Circle" || payload.InvitedBy != inv.InvitedBy {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestInvitationExpiryJobSkipsRacedRows(t *testing.T) {
	inv := overdueInvitation("Care Circle")
	reader := &fakeInvitationReader{due: []models.Invitation{inv}}
	repo := &fakeExpiringRepo{already: map[uuid.UUID]bool{inv.ID: true}}
	events := &fakeOutbox{}
	job := newInvitationExpiryJob(t, reader, repo, events)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events.events) != 0 {
		t.Fatalf("expected no events for a raced row, got %d", len(events.events))
	}
}

func TestInvitationExpiryJobCollectsRowErrors(t *testing.T) {
	first := overdueInvitation("Care Circle")
	second := overdueInvitation("Care Circle")
	reader := &fakeInvitationReader{due: []models.Invitation{first, second}}
	repo := &fakeExpiringRepo{}
	events := &fakeOutbox{err: errors.New("outbox down")}
	job := newInvitationExpiryJob(t, reader, repo, events)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	// Both rows are still attempted.
	if len(repo.marked) != 2 {
		t.Fatalf("expected both rows attempted, got %d", len(repo.marked))
	}
}
