package invitations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
)

// Repository exposes invitation persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an invitation row. The partial unique index on
// (family_id, lower(email)) rejects a second pending invitation for
// the same address.
func (r *Repository) Create(ctx context.Context, inv *models.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

// FindByID loads an invitation with its family.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	err := r.db.WithContext(ctx).Preload("Family").First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListByFamily returns the family's invitations, newest first, optionally
// filtered by status.
func (r *Repository) ListByFamily(ctx context.Context, familyID uuid.UUID, status *enums.InvitationStatus) ([]models.Invitation, error) {
	query := r.db.WithContext(ctx).Where("family_id = ?", familyID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.Invitation
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPendingByEmail returns pending, unexpired invitations addressed to
// the given email.
func (r *Repository) ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]models.Invitation, error) {
	var rows []models.Invitation
	err := r.db.WithContext(ctx).
		Preload("Family").
		Where("lower(email) = lower(?)", email).
		Where("status = ?", enums.InvitationStatusPending).
		Where("expires_at > ?", now).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Update persists the invitation's mutable fields.
func (r *Repository) Update(ctx context.Context, inv *models.Invitation) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

// SoftDelete hides a cancelled invitation, which also releases the
// pending-uniqueness slot for its (family, email) pair.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Invitation{}, "id = ?", id).Error
}

// ListDuePending returns pending invitations whose expiry has passed,
// oldest first, capped at limit. The expiry sweep walks these.
func (r *Repository) ListDuePending(ctx context.Context, now time.Time, limit int) ([]models.Invitation, error) {
	var rows []models.Invitation
	err := r.db.WithContext(ctx).
		Preload("Family").
		Where("status = ?", enums.InvitationStatusPending).
		Where("expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkExpired flips a still-pending invitation to expired. Returns the
// number of rows changed so callers can skip ones another worker beat
// them to.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, enums.InvitationStatusPending).
		Update("status", enums.InvitationStatusExpired)
	return res.RowsAffected, res.Error
}
