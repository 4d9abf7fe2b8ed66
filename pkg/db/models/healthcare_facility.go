package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbtypes "github.com/carenest/carenest-backend/pkg/db/types"
)

// HealthcareFacility is a directory entry for a clinic, hospital or
// pharmacy. AverageRating and ReviewCount are denormalized aggregates
// recomputed inside the same transaction as each review write.
type HealthcareFacility struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `gorm:"column:name;not null;index"`
	Description    *string         `gorm:"column:description"`
	Address        string          `gorm:"column:address;not null"`
	City           string          `gorm:"column:city;not null;index"`
	Phone          *string         `gorm:"column:phone"`
	Email          *string         `gorm:"column:email"`
	Website        *string         `gorm:"column:website"`
	Services       pq.StringArray  `gorm:"column:services;type:text[]"`
	OperatingHours dbtypes.JSONMap `gorm:"column:operating_hours;type:jsonb"`
	AverageRating  decimal.Decimal `gorm:"column:average_rating;type:numeric(3,2);not null;default:0"`
	ReviewCount    int             `gorm:"column:review_count;not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
