package families

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/carenest/carenest-backend/pkg/db"
	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
)

type familyRepository interface {
	CreateFamily(ctx context.Context, family *models.Family) error
	FindFamilyByID(ctx context.Context, id uuid.UUID) (*models.Family, error)
	UpdateFamily(ctx context.Context, family *models.Family) error
	CreateMember(ctx context.Context, familyID, userID uuid.UUID, role enums.FamilyRole, invitedBy *uuid.UUID, joinedAt time.Time) (*models.FamilyMember, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.FamilyMember, error)
	GetMember(ctx context.Context, familyID, userID uuid.UUID) (*models.FamilyMember, error)
	ListMembers(ctx context.Context, familyID uuid.UUID) ([]FamilyMemberDTO, error)
	UpdateMemberRole(ctx context.Context, familyID, userID uuid.UUID, role enums.FamilyRole) error
	DeleteMember(ctx context.Context, familyID, userID uuid.UUID) error
	DeleteMembersByFamily(ctx context.Context, familyID uuid.UUID) error
	CountMembersWithRoles(ctx context.Context, familyID uuid.UUID, roles ...enums.FamilyRole) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes family operations.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateFamilyInput) (*FamilyDTO, error)
	GetByID(ctx context.Context, actorID, familyID uuid.UUID) (*FamilyDTO, error)
	GetMine(ctx context.Context, actorID uuid.UUID) (*FamilyDTO, error)
	Update(ctx context.Context, actorID, familyID uuid.UUID, input UpdateFamilyInput) (*FamilyDTO, error)
	Delete(ctx context.Context, actorID, familyID uuid.UUID) error
	ListMembers(ctx context.Context, actorID, familyID uuid.UUID) ([]FamilyMemberDTO, error)
	UpdateMemberRole(ctx context.Context, actorID, familyID, targetUserID uuid.UUID, role enums.FamilyRole) error
	RemoveMember(ctx context.Context, actorID, familyID, targetUserID uuid.UUID) error
	Leave(ctx context.Context, actorID, familyID uuid.UUID) error
}

type service struct {
	db     txRunner
	repo   familyRepository
	txRepo func(tx *gorm.DB) familyRepository
}

// ServiceParams bundles the dependencies for the families service.
type ServiceParams struct {
	DB   txRunner
	Repo familyRepository

	// TxRepoFactory defaults to the GORM-backed repository.
	TxRepoFactory func(tx *gorm.DB) familyRepository
}

// NewService builds a families service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("family repository required")
	}
	factory := params.TxRepoFactory
	if factory == nil {
		factory = func(tx *gorm.DB) familyRepository {
			return NewRepository(tx)
		}
	}
	return &service{
		db:     params.DB,
		repo:   params.Repo,
		txRepo: factory,
	}, nil
}

// Create provisions the family and its admin membership in one transaction.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateFamilyInput) (*FamilyDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family name is required")
	}

	var created *models.Family
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)

		if _, err := repo.FindByUserID(ctx, userID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "user already belongs to a family")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing membership")
		}

		family := &models.Family{
			Name:        name,
			Description: input.Description,
			CreatedBy:   userID,
			IsActive:    true,
		}
		if err := repo.CreateFamily(ctx, family); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create family")
		}

		if _, err := repo.CreateMember(ctx, family.ID, userID, enums.FamilyRoleAdmin, nil, time.Now().UTC()); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_family_members_user") {
				return pkgerrors.New(pkgerrors.CodeConflict, "user already belongs to a family")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create admin membership")
		}

		created = family
		return nil
	})
	if err != nil {
		return nil, err
	}

	return familyFromModel(created), nil
}

func (s *service) GetByID(ctx context.Context, actorID, familyID uuid.UUID) (*FamilyDTO, error) {
	if _, err := s.requireMember(ctx, familyID, actorID); err != nil {
		return nil, err
	}
	family, err := s.repo.FindFamilyByID(ctx, familyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "family not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load family")
	}
	return familyFromModel(family), nil
}

// GetMine resolves the caller's family through their membership row.
func (s *service) GetMine(ctx context.Context, actorID uuid.UUID) (*FamilyDTO, error) {
	member, err := s.repo.FindByUserID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "you do not belong to a family")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check membership")
	}
	family, err := s.repo.FindFamilyByID(ctx, member.FamilyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "family not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load family")
	}
	return familyFromModel(family), nil
}

func (s *service) Update(ctx context.Context, actorID, familyID uuid.UUID, input UpdateFamilyInput) (*FamilyDTO, error) {
	if err := s.requireAdmin(ctx, familyID, actorID); err != nil {
		return nil, err
	}

	family, err := s.repo.FindFamilyByID(ctx, familyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "family not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load family")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "family name cannot be blank")
		}
		family.Name = name
	}
	if input.Description != nil {
		family.Description = input.Description
	}

	if err := s.repo.UpdateFamily(ctx, family); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update family")
	}
	return familyFromModel(family), nil
}

// Delete deactivates the family and clears its roster. Only the original
// creator may delete, even if they no longer hold the admin role.
func (s *service) Delete(ctx context.Context, actorID, familyID uuid.UUID) error {
	family, err := s.repo.FindFamilyByID(ctx, familyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "family not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load family")
	}
	if family.CreatedBy != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the family creator can delete it")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)

		family.IsActive = false
		if err := repo.UpdateFamily(ctx, family); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate family")
		}
		if err := repo.DeleteMembersByFamily(ctx, familyID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear family roster")
		}
		return nil
	})
}

func (s *service) ListMembers(ctx context.Context, actorID, familyID uuid.UUID) ([]FamilyMemberDTO, error) {
	if _, err := s.requireMember(ctx, familyID, actorID); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, familyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list members")
	}
	return members, nil
}

// UpdateMemberRole changes a member's role. The last-admin check runs inside
// the same transaction as the role change so concurrent demotions cannot
// leave the family without an admin.
func (s *service) UpdateMemberRole(ctx context.Context, actorID, familyID, targetUserID uuid.UUID, role enums.FamilyRole) error {
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid family role")
	}
	if actorID == targetUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot change your own role")
	}
	if err := s.requireAdmin(ctx, familyID, actorID); err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)

		member, err := repo.GetMember(ctx, familyID, targetUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load member")
		}

		if member.Role == enums.FamilyRoleAdmin && role != enums.FamilyRoleAdmin {
			count, err := repo.CountMembersWithRoles(ctx, familyID, enums.FamilyRoleAdmin)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count admins")
			}
			if count <= 1 {
				return pkgerrors.New(pkgerrors.CodeConflict, "cannot demote last admin")
			}
		}

		if err := repo.UpdateMemberRole(ctx, familyID, targetUserID, role); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update member role")
		}
		return nil
	})
}

// RemoveMember removes another member. Admins can remove anyone but the
// last admin. Self-removal goes through Leave.
func (s *service) RemoveMember(ctx context.Context, actorID, familyID, targetUserID uuid.UUID) error {
	if err := s.requireAdmin(ctx, familyID, actorID); err != nil {
		return err
	}
	if actorID == targetUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "use leave to exit the family")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)

		member, err := repo.GetMember(ctx, familyID, targetUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load member")
		}

		if member.Role == enums.FamilyRoleAdmin {
			count, err := repo.CountMembersWithRoles(ctx, familyID, enums.FamilyRoleAdmin)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count admins")
			}
			if count <= 1 {
				return pkgerrors.New(pkgerrors.CodeConflict, "cannot remove last admin")
			}
		}

		if err := repo.DeleteMember(ctx, familyID, targetUserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete member")
		}
		return nil
	})
}

// Leave removes the caller's own membership, guarded against leaving the
// family without an admin.
func (s *service) Leave(ctx context.Context, actorID, familyID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)

		member, err := repo.GetMember(ctx, familyID, actorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this family")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check membership")
		}

		if member.Role == enums.FamilyRoleAdmin {
			count, err := repo.CountMembersWithRoles(ctx, familyID, enums.FamilyRoleAdmin)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count admins")
			}
			if count <= 1 {
				return pkgerrors.New(pkgerrors.CodeConflict, "cannot leave as last admin")
			}
		}

		if err := repo.DeleteMember(ctx, familyID, actorID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete member")
		}
		return nil
	})
}

func (s *service) requireMember(ctx context.Context, familyID, userID uuid.UUID) (*models.FamilyMember, error) {
	member, err := s.repo.GetMember(ctx, familyID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this family")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check membership")
	}
	return member, nil
}

func (s *service) requireAdmin(ctx context.Context, familyID, userID uuid.UUID) error {
	member, err := s.requireMember(ctx, familyID, userID)
	if err != nil {
		return err
	}
	if member.Role != enums.FamilyRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient family role")
	}
	return nil
}
