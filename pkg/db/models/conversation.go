package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a thread between a patient user and a provider.
// Exactly one conversation exists per (patient, provider) pair.
type Conversation struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PatientUserID  uuid.UUID `gorm:"column:patient_user_id;type:uuid;not null;uniqueIndex:ux_conversations_patient_provider"`
	ProviderID     uuid.UUID `gorm:"column:provider_id;type:uuid;not null;uniqueIndex:ux_conversations_patient_provider"`
	LastActivityAt time.Time `gorm:"column:last_activity_at;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Provider *HealthcareProvider `gorm:"foreignKey:ProviderID"`
}
