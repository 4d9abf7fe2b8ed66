package reminders

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
)

// ReminderDTO is the API shape of a reminder.
type ReminderDTO struct {
	ID                 uuid.UUID                 `json:"id"`
	OwnerUserID        uuid.UUID                 `json:"owner_user_id"`
	AssignedToUserID   *uuid.UUID                `json:"assigned_to_user_id,omitempty"`
	Type               enums.ReminderType        `json:"type"`
	Title              string                    `json:"title"`
	Notes              *string                   `json:"notes,omitempty"`
	ScheduledAt        time.Time                 `json:"scheduled_at"`
	Recurrence         enums.RecurrenceFrequency `json:"recurrence"`
	RecurrenceInterval int                       `json:"recurrence_interval"`
	RecurrenceEndsAt   *time.Time                `json:"recurrence_ends_at,omitempty"`

	RecurrenceMaxOccurrences *int `json:"recurrence_max_occurrences,omitempty"`
	RecurrenceOccurrences    int  `json:"recurrence_occurrences"`

	Medication  *string    `json:"medication,omitempty"`
	Dosage      *string    `json:"dosage,omitempty"`
	Location    *string    `json:"location,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateReminderInput carries the fields for a new reminder.
type CreateReminderInput struct {
	AssignedToUserID   *uuid.UUID                `json:"assigned_to_user_id"`
	Type               enums.ReminderType        `json:"type" validate:"required"`
	Title              string                    `json:"title" validate:"required,max=200"`
	Notes              *string                   `json:"notes"`
	ScheduledAt        time.Time                 `json:"scheduled_at" validate:"required"`
	Recurrence         enums.RecurrenceFrequency `json:"recurrence"`
	RecurrenceInterval int                       `json:"recurrence_interval"`
	RecurrenceEndsAt   *time.Time                `json:"recurrence_ends_at"`

	RecurrenceMaxOccurrences *int `json:"recurrence_max_occurrences"`

	Medication *string `json:"medication"`
	Dosage     *string `json:"dosage"`
	Location   *string `json:"location"`
}

// UpdateReminderInput carries optional reminder updates; nil means unchanged.
type UpdateReminderInput struct {
	AssignedToUserID   *uuid.UUID                 `json:"assigned_to_user_id"`
	Title              *string                    `json:"title"`
	Notes              *string                    `json:"notes"`
	ScheduledAt        *time.Time                 `json:"scheduled_at"`
	Recurrence         *enums.RecurrenceFrequency `json:"recurrence"`
	RecurrenceInterval *int                       `json:"recurrence_interval"`
	RecurrenceEndsAt   *time.Time                 `json:"recurrence_ends_at"`

	RecurrenceMaxOccurrences *int `json:"recurrence_max_occurrences"`

	Medication *string `json:"medication"`
	Dosage     *string `json:"dosage"`
	Location   *string `json:"location"`
}

// ListFilter narrows reminder listings.
type ListFilter struct {
	Type             *enums.ReminderType
	IncludeCompleted bool
	From             *time.Time
	To               *time.Time
	Limit            int
}

// Stats summarizes a user's reminders. Overdue, today and upcoming are
// disjoint date buckets over the open reminders.
type Stats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Overdue   int64 `json:"overdue"`
	Today     int64 `json:"today"`
	Upcoming  int64 `json:"upcoming"`
}

func fromModel(r *models.Reminder) *ReminderDTO {
	return &ReminderDTO{
		ID:                 r.ID,
		OwnerUserID:        r.OwnerUserID,
		AssignedToUserID:   r.AssignedToUserID,
		Type:               r.Type,
		Title:              r.Title,
		Notes:              r.Notes,
		ScheduledAt:        r.ScheduledAt,
		Recurrence:         r.Recurrence,
		RecurrenceInterval: r.RecurrenceInterval,
		RecurrenceEndsAt:   r.RecurrenceEndsAt,

		RecurrenceMaxOccurrences: r.RecurrenceMaxOccurrences,
		RecurrenceOccurrences:    r.RecurrenceOccurrences,

		Medication:  r.Medication,
		Dosage:      r.Dosage,
		Location:    r.Location,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
	}
}
