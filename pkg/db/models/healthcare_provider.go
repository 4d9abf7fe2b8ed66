package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbtypes "github.com/carenest/carenest-backend/pkg/db/types"
)

// HealthcareProvider is an individual practitioner, optionally
// attached to a facility.
type HealthcareProvider struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FacilityID     *uuid.UUID      `gorm:"column:facility_id;type:uuid;index"`
	FirstName      string          `gorm:"column:first_name;not null"`
	LastName       string          `gorm:"column:last_name;not null"`
	Specialty      string          `gorm:"column:specialty;not null;index"`
	Bio            *string         `gorm:"column:bio"`
	Phone          *string         `gorm:"column:phone"`
	Email          *string         `gorm:"column:email"`
	Qualifications pq.StringArray  `gorm:"column:qualifications;type:text[]"`
	Availability   dbtypes.JSONMap `gorm:"column:availability;type:jsonb"`
	AverageRating  decimal.Decimal `gorm:"column:average_rating;type:numeric(3,2);not null;default:0"`
	ReviewCount    int             `gorm:"column:review_count;not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Facility *HealthcareFacility `gorm:"foreignKey:FacilityID"`
}
