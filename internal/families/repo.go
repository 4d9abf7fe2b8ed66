package families

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
)

// Repository exposes family and membership persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateFamily inserts a family row.
func (r *Repository) CreateFamily(ctx context.Context, family *models.Family) error {
	return r.db.WithContext(ctx).Create(family).Error
}

// FindFamilyByID loads a family by id.
func (r *Repository) FindFamilyByID(ctx context.Context, id uuid.UUID) (*models.Family, error) {
	var family models.Family
	if err := r.db.WithContext(ctx).First(&family, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &family, nil
}

// UpdateFamily persists the mutable family fields.
func (r *Repository) UpdateFamily(ctx context.Context, family *models.Family) error {
	return r.db.WithContext(ctx).Save(family).Error
}

// CreateMember persists a membership record.
func (r *Repository) CreateMember(ctx context.Context, familyID, userID uuid.UUID, role enums.FamilyRole, invitedBy *uuid.UUID, joinedAt time.Time) (*models.FamilyMember, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid family role %q", role)
	}
	member := models.FamilyMember{
		FamilyID:  familyID,
		UserID:    userID,
		Role:      role,
		InvitedBy: invitedBy,
		JoinedAt:  joinedAt,
	}
	if err := r.db.WithContext(ctx).Create(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByUserID returns the user's membership, if any. A user belongs to at
// most one family.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.FamilyMember, error) {
	var member models.FamilyMember
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetMember retrieves a membership by family and user.
func (r *Repository) GetMember(ctx context.Context, familyID, userID uuid.UUID) (*models.FamilyMember, error) {
	var member models.FamilyMember
	err := r.db.WithContext(ctx).
		Where("family_id = ? AND user_id = ?", familyID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

type memberRow struct {
	models.FamilyMember
	FirstName string
	LastName  string
	Email     string
}

// ListMembers returns the family roster with member identities.
func (r *Repository) ListMembers(ctx context.Context, familyID uuid.UUID) ([]FamilyMemberDTO, error) {
	var rows []memberRow
	err := r.db.WithContext(ctx).
		Model(&models.FamilyMember{}).
		Select("family_members.*, users.first_name AS first_name, users.last_name AS last_name, users.email AS email").
		Joins("JOIN users ON users.id = family_members.user_id").
		Where("family_members.family_id = ?", familyID).
		Order("family_members.joined_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	members := make([]FamilyMemberDTO, 0, len(rows))
	for _, row := range rows {
		members = append(members, FamilyMemberDTO{
			ID:        row.ID,
			FamilyID:  row.FamilyID,
			UserID:    row.UserID,
			Role:      row.Role,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Email:     row.Email,
			JoinedAt:  row.JoinedAt,
		})
	}
	return members, nil
}

// UpdateMemberRole changes a member's role within the family.
func (r *Repository) UpdateMemberRole(ctx context.Context, familyID, userID uuid.UUID, role enums.FamilyRole) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid family role %q", role)
	}
	return r.db.WithContext(ctx).
		Model(&models.FamilyMember{}).
		Where("family_id = ? AND user_id = ?", familyID, userID).
		Update("role", role).Error
}

// DeleteMember removes a membership row.
func (r *Repository) DeleteMember(ctx context.Context, familyID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("family_id = ? AND user_id = ?", familyID, userID).
		Delete(&models.FamilyMember{}).Error
}

// DeleteMembersByFamily removes every membership row for the family.
func (r *Repository) DeleteMembersByFamily(ctx context.Context, familyID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("family_id = ?", familyID).
		Delete(&models.FamilyMember{}).Error
}

// CountMembersWithRoles counts members holding any of the provided roles.
func (r *Repository) CountMembersWithRoles(ctx context.Context, familyID uuid.UUID, roles ...enums.FamilyRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FamilyMember{}).
		Where("family_id = ? AND role IN ?", familyID, roles).
		Count(&count).Error
	return count, err
}
