package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
)

// Service covers reminder CRUD, completion with recurrence advance, and
// the per-user stats buckets.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateReminderInput) (*ReminderDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*ReminderDTO, error)
	List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]ReminderDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, input UpdateReminderInput) (*ReminderDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Complete(ctx context.Context, userID, id uuid.UUID) (*ReminderDTO, error)
	Uncomplete(ctx context.Context, userID, id uuid.UUID) (*ReminderDTO, error)
	Stats(ctx context.Context, userID uuid.UUID) (*Stats, error)
}

type reminderRepository interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reminder, error)
	Save(ctx context.Context, reminder *models.Reminder) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]models.Reminder, error)
	CountStats(ctx context.Context, userID uuid.UUID, now time.Time) (*Stats, error)
}

type membershipRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.FamilyMember, error)
}

type service struct {
	repo    reminderRepository
	members membershipRepository
}

// ServiceParams wires the reminder service dependencies.
type ServiceParams struct {
	Repo    reminderRepository
	Members membershipRepository
}

// NewService validates dependencies and builds the reminder service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reminders service requires a repository")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("reminders service requires a membership repository")
	}
	return &service{repo: params.Repo, members: params.Members}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateReminderInput) (*ReminderDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid reminder type %q", input.Type))
	}
	if input.ScheduledAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled_at is required")
	}
	recurrence := input.Recurrence
	if recurrence == "" {
		recurrence = enums.RecurrenceFrequencyNone
	}
	if !recurrence.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid recurrence %q", recurrence))
	}
	interval := input.RecurrenceInterval
	if interval < 1 {
		interval = 1
	}
	if input.RecurrenceEndsAt != nil && input.RecurrenceMaxOccurrences != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recurrence_ends_at and recurrence_max_occurrences are mutually exclusive")
	}
	if input.RecurrenceMaxOccurrences != nil && *input.RecurrenceMaxOccurrences < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recurrence_max_occurrences must be at least 1")
	}
	if input.AssignedToUserID != nil {
		if err := s.requireSameFamily(ctx, ownerID, *input.AssignedToUserID); err != nil {
			return nil, err
		}
	}

	reminder := &models.Reminder{
		OwnerUserID:              ownerID,
		AssignedToUserID:         input.AssignedToUserID,
		Type:                     input.Type,
		Title:                    title,
		Notes:                    input.Notes,
		ScheduledAt:              input.ScheduledAt,
		Recurrence:               recurrence,
		RecurrenceInterval:       interval,
		RecurrenceEndsAt:         input.RecurrenceEndsAt,
		RecurrenceMaxOccurrences: input.RecurrenceMaxOccurrences,
		Medication:               input.Medication,
		Dosage:                   input.Dosage,
		Location:                 input.Location,
	}
	if err := s.repo.Create(ctx, reminder); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create reminder")
	}
	return fromModel(reminder), nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*ReminderDTO, error) {
	reminder, err := s.loadVisible(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return fromModel(reminder), nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]ReminderDTO, error) {
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid reminder type %q", *filter.Type))
	}
	rows, err := s.repo.ListForUser(ctx, userID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reminders")
	}
	dtos := make([]ReminderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *fromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateReminderInput) (*ReminderDTO, error) {
	reminder, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if input.AssignedToUserID != nil {
		if err := s.requireSameFamily(ctx, userID, *input.AssignedToUserID); err != nil {
			return nil, err
		}
		reminder.AssignedToUserID = input.AssignedToUserID
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
		}
		reminder.Title = title
	}
	if input.Notes != nil {
		reminder.Notes = input.Notes
	}
	if input.ScheduledAt != nil {
		reminder.ScheduledAt = *input.ScheduledAt
		reminder.LastNotifiedAt = nil
	}
	if input.Recurrence != nil {
		if !input.Recurrence.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid recurrence %q", *input.Recurrence))
		}
		reminder.Recurrence = *input.Recurrence
	}
	if input.RecurrenceInterval != nil {
		interval := *input.RecurrenceInterval
		if interval < 1 {
			interval = 1
		}
		reminder.RecurrenceInterval = interval
	}
	if input.RecurrenceEndsAt != nil {
		reminder.RecurrenceEndsAt = input.RecurrenceEndsAt
	}
	if input.RecurrenceMaxOccurrences != nil {
		if *input.RecurrenceMaxOccurrences < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "recurrence_max_occurrences must be at least 1")
		}
		reminder.RecurrenceMaxOccurrences = input.RecurrenceMaxOccurrences
	}
	if reminder.RecurrenceEndsAt != nil && reminder.RecurrenceMaxOccurrences != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recurrence_ends_at and recurrence_max_occurrences are mutually exclusive")
	}
	if input.Medication != nil {
		reminder.Medication = input.Medication
	}
	if input.Dosage != nil {
		reminder.Dosage = input.Dosage
	}
	if input.Location != nil {
		reminder.Location = input.Location
	}
	if err := s.repo.Save(ctx, reminder); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update reminder")
	}
	return fromModel(reminder), nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete reminder")
	}
	return nil
}

// Complete closes a one-off reminder, or advances a recurring one to its
// next occurrence. A recurring reminder whose next occurrence falls past
// its end date, or whose completion count reaches the occurrence cap, is
// closed instead.
func (s *service) Complete(ctx context.Context, userID, id uuid.UUID) (*ReminderDTO, error) {
	reminder, err := s.loadVisible(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if reminder.CompletedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reminder is already completed")
	}

	now := time.Now()
	reminder.RecurrenceOccurrences++
	next := NextOccurrence(reminder.ScheduledAt, reminder.Recurrence, reminder.RecurrenceInterval)
	switch {
	case next.IsZero(),
		reminder.RecurrenceEndsAt != nil && next.After(*reminder.RecurrenceEndsAt),
		reminder.RecurrenceMaxOccurrences != nil && reminder.RecurrenceOccurrences >= *reminder.RecurrenceMaxOccurrences:
		reminder.CompletedAt = &now
	default:
		reminder.ScheduledAt = next
		reminder.LastNotifiedAt = nil
	}
	if err := s.repo.Save(ctx, reminder); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete reminder")
	}
	return fromModel(reminder), nil
}

// Uncomplete reopens a completed reminder without touching its schedule.
func (s *service) Uncomplete(ctx context.Context, userID, id uuid.UUID) (*ReminderDTO, error) {
	reminder, err := s.loadVisible(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if reminder.CompletedAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reminder is not completed")
	}

	reminder.CompletedAt = nil
	if reminder.RecurrenceOccurrences > 0 {
		reminder.RecurrenceOccurrences--
	}
	if err := s.repo.Save(ctx, reminder); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reopen reminder")
	}
	return fromModel(reminder), nil
}

func (s *service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	stats, err := s.repo.CountStats(ctx, userID, time.Now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reminder stats")
	}
	return stats, nil
}

func (s *service) loadVisible(ctx context.Context, userID, id uuid.UUID) (*models.Reminder, error) {
	reminder, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reminder not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reminder")
	}
	if reminder.OwnerUserID == userID {
		return reminder, nil
	}
	if reminder.AssignedToUserID != nil && *reminder.AssignedToUserID == userID {
		return reminder, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reminder not found")
}

func (s *service) loadOwned(ctx context.Context, userID, id uuid.UUID) (*models.Reminder, error) {
	reminder, err := s.loadVisible(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if reminder.OwnerUserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can modify this reminder")
	}
	return reminder, nil
}

// requireSameFamily checks the assignee shares a family with the owner.
func (s *service) requireSameFamily(ctx context.Context, ownerID, assigneeID uuid.UUID) error {
	if ownerID == assigneeID {
		return nil
	}
	owner, err := s.members.FindByUserID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "assignee must be in your family")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup owner membership")
	}
	assignee, err := s.members.FindByUserID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "assignee must be in your family")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup assignee membership")
	}
	if owner.FamilyID != assignee.FamilyID {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignee must be in your family")
	}
	return nil
}
