package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/carenest/carenest-backend/pkg/enums"
)

// Reminder is a scheduled care task, optionally recurring and
// optionally assigned to another family member. LastNotifiedAt keeps
// the due sweep from emitting the same occurrence twice.
type Reminder struct {
	ID                 uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID        uuid.UUID                 `gorm:"column:owner_user_id;type:uuid;not null;index"`
	AssignedToUserID   *uuid.UUID                `gorm:"column:assigned_to_user_id;type:uuid;index"`
	Type               enums.ReminderType        `gorm:"column:type;type:reminder_type;not null"`
	Title              string                    `gorm:"column:title;not null"`
	Notes              *string                   `gorm:"column:notes"`
	ScheduledAt        time.Time                 `gorm:"column:scheduled_at;not null;index"`
	Recurrence         enums.RecurrenceFrequency `gorm:"column:recurrence;type:recurrence_frequency;not null;default:'none'"`
	RecurrenceInterval int                       `gorm:"column:recurrence_interval;not null;default:1"`
	RecurrenceEndsAt   *time.Time                `gorm:"column:recurrence_ends_at"`

	// RecurrenceMaxOccurrences and RecurrenceEndsAt are mutually
	// exclusive end conditions; RecurrenceOccurrences counts completed
	// occurrences toward the cap.
	RecurrenceMaxOccurrences *int `gorm:"column:recurrence_max_occurrences"`
	RecurrenceOccurrences    int  `gorm:"column:recurrence_occurrences;not null;default:0"`
	Medication     *string    `gorm:"column:medication"`
	Dosage         *string    `gorm:"column:dosage"`
	Location       *string    `gorm:"column:location"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
	LastNotifiedAt *time.Time `gorm:"column:last_notified_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
