package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/internal/families"
	"github.com/carenest/carenest-backend/pkg/db"
	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
	"github.com/carenest/carenest-backend/pkg/outbox"
	"github.com/carenest/carenest-backend/pkg/outbox/payloads"
)

// Service covers the invitation lifecycle: issue, accept, decline, cancel.
type Service interface {
	Create(ctx context.Context, actorID, familyID uuid.UUID, input CreateInvitationInput) (*InvitationDTO, error)
	ListForFamily(ctx context.Context, actorID, familyID uuid.UUID, status *enums.InvitationStatus) ([]InvitationDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]InvitationDTO, error)
	Accept(ctx context.Context, userID, invitationID uuid.UUID) (*InvitationDTO, error)
	Decline(ctx context.Context, userID, invitationID uuid.UUID) (*InvitationDTO, error)
	Cancel(ctx context.Context, actorID, invitationID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type invitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	ListByFamily(ctx context.Context, familyID uuid.UUID, status *enums.InvitationStatus) ([]models.Invitation, error)
	ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]models.Invitation, error)
	Update(ctx context.Context, inv *models.Invitation) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type membershipRepository interface {
	GetMember(ctx context.Context, familyID, userID uuid.UUID) (*models.FamilyMember, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.FamilyMember, error)
	CreateMember(ctx context.Context, familyID, userID uuid.UUID, role enums.FamilyRole, invitedBy *uuid.UUID, joinedAt time.Time) (*models.FamilyMember, error)
	FindFamilyByID(ctx context.Context, id uuid.UUID) (*models.Family, error)
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	db       txRunner
	repo     invitationRepository
	members  membershipRepository
	users    userRepository
	events   outboxEmitter
	ttl      time.Duration
	txRepo   func(tx *gorm.DB) invitationRepository
	txMember func(tx *gorm.DB) membershipRepository
}

// ServiceParams wires the invitation service dependencies.
type ServiceParams struct {
	DB      txRunner
	Repo    invitationRepository
	Members membershipRepository
	Users   userRepository
	Outbox  outboxEmitter
	TTL     time.Duration

	// Optional tx-scoped repo factories, stubbable in tests.
	TxRepoFactory   func(tx *gorm.DB) invitationRepository
	TxMemberFactory func(tx *gorm.DB) membershipRepository
}

// NewService validates dependencies and builds the invitation service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("invitations service requires a transaction runner")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("invitations service requires an invitation repository")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("invitations service requires a membership repository")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("invitations service requires a user repository")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("invitations service requires an outbox emitter")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("invitations service requires a positive TTL")
	}
	svc := &service{
		db:       params.DB,
		repo:     params.Repo,
		members:  params.Members,
		users:    params.Users,
		events:   params.Outbox,
		ttl:      params.TTL,
		txRepo:   params.TxRepoFactory,
		txMember: params.TxMemberFactory,
	}
	if svc.txRepo == nil {
		svc.txRepo = func(tx *gorm.DB) invitationRepository { return NewRepository(tx) }
	}
	if svc.txMember == nil {
		svc.txMember = func(tx *gorm.DB) membershipRepository { return families.NewRepository(tx) }
	}
	return svc, nil
}

func (s *service) Create(ctx context.Context, actorID, familyID uuid.UUID, input CreateInvitationInput) (*InvitationDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid family role %q", input.Role))
	}
	if err := s.requireAdmin(ctx, familyID, actorID); err != nil {
		return nil, err
	}

	// An address that already maps to a user in a family cannot be
	// invited; accepting would violate the one-family-per-user rule.
	if existing, err := s.users.FindByEmail(ctx, email); err == nil {
		if _, err := s.members.FindByUserID(ctx, existing.ID); err == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already belongs to a family")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup invitee membership")
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup invitee")
	}

	family, err := s.members.FindFamilyByID(ctx, familyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load family")
	}

	inv := &models.Invitation{
		FamilyID:  familyID,
		Email:     email,
		Role:      input.Role,
		Status:    enums.InvitationStatusPending,
		InvitedBy: actorID,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		if err := repo.Create(ctx, inv); err != nil {
			if db.IsUniqueViolation(err, "ux_invitations_pending_family_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a pending invitation already exists for this email")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create invitation")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvitationCreated,
			AggregateType: enums.AggregateInvitation,
			AggregateID:   inv.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, FamilyID: &familyID},
			Data: payloads.InvitationCreatedEvent{
				InvitationID: inv.ID,
				FamilyID:     familyID,
				FamilyName:   family.Name,
				Email:        email,
				Role:         input.Role,
				InvitedBy:    actorID,
				ExpiresAt:    inv.ExpiresAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(inv)
	dto.FamilyName = family.Name
	return dto, nil
}

func (s *service) ListForFamily(ctx context.Context, actorID, familyID uuid.UUID, status *enums.InvitationStatus) ([]InvitationDTO, error) {
	if _, err := s.requireMember(ctx, familyID, actorID); err != nil {
		return nil, err
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid invitation status %q", *status))
	}
	rows, err := s.repo.ListByFamily(ctx, familyID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list invitations")
	}
	dtos := make([]InvitationDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *fromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]InvitationDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	rows, err := s.repo.ListPendingByEmail(ctx, user.Email, time.Now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list invitations")
	}
	dtos := make([]InvitationDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *fromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) Accept(ctx context.Context, userID, invitationID uuid.UUID) (*InvitationDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	var result *models.Invitation
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		inv, err := s.loadAddressed(ctx, repo, invitationID, user.Email)
		if err != nil {
			return err
		}
		// Only the expiry sweep persists Expired; accepting a stale
		// invitation just fails.
		if time.Now().After(inv.ExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invitation has expired")
		}

		members := s.txMember(tx)
		if _, err := members.CreateMember(ctx, inv.FamilyID, userID, inv.Role, &inv.InvitedBy, time.Now()); err != nil {
			if db.IsUniqueViolation(err, "ux_family_members_user") {
				return pkgerrors.New(pkgerrors.CodeConflict, "user already belongs to a family")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create membership")
		}

		now := time.Now()
		inv.Status = enums.InvitationStatusAccepted
		inv.AcceptedAt = &now
		if err := repo.Update(ctx, inv); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "accept invitation")
		}
		result = inv
		return s.emitDecided(ctx, tx, inv, userID)
	})
	if err != nil {
		return nil, err
	}
	return fromModel(result), nil
}

func (s *service) Decline(ctx context.Context, userID, invitationID uuid.UUID) (*InvitationDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	var result *models.Invitation
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.txRepo(tx)
		inv, err := s.loadAddressed(ctx, repo, invitationID, user.Email)
		if err != nil {
			return err
		}
		now := time.Now()
		inv.Status = enums.InvitationStatusDeclined
		inv.DeclinedAt = &now
		if err := repo.Update(ctx, inv); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decline invitation")
		}
		result = inv
		return s.emitDecided(ctx, tx, inv, userID)
	})
	if err != nil {
		return nil, err
	}
	return fromModel(result), nil
}

func (s *service) Cancel(ctx context.Context, actorID, invitationID uuid.UUID) error {
	inv, err := s.repo.FindByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invitation")
	}
	// The inviter keeps cancel rights even after losing the admin role.
	if inv.InvitedBy != actorID {
		if err := s.requireAdmin(ctx, inv.FamilyID, actorID); err != nil {
			return err
		}
	}
	if inv.Status != enums.InvitationStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending invitations can be cancelled")
	}
	if err := s.repo.SoftDelete(ctx, invitationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel invitation")
	}
	return nil
}

// loadAddressed fetches the invitation and checks it is pending and
// addressed to the caller's email.
func (s *service) loadAddressed(ctx context.Context, repo invitationRepository, invitationID uuid.UUID, email string) (*models.Invitation, error) {
	inv, err := repo.FindByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invitation")
	}
	if !strings.EqualFold(inv.Email, email) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invitation is addressed to a different email")
	}
	if inv.Status != enums.InvitationStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("invitation is already %s", inv.Status))
	}
	return inv, nil
}

func (s *service) emitDecided(ctx context.Context, tx *gorm.DB, inv *models.Invitation, decidedBy uuid.UUID) error {
	familyName := ""
	if inv.Family != nil {
		familyName = inv.Family.Name
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventInvitationDecided,
		AggregateType: enums.AggregateInvitation,
		AggregateID:   inv.ID,
		Actor:         &outbox.ActorRef{UserID: decidedBy},
		Data: payloads.InvitationDecidedEvent{
			InvitationID: inv.ID,
			FamilyID:     inv.FamilyID,
			FamilyName:   familyName,
			Email:        inv.Email,
			Status:       inv.Status,
			InvitedBy:    inv.InvitedBy,
			DecidedBy:    &decidedBy,
		},
		Version: 1,
	})
}

func (s *service) requireMember(ctx context.Context, familyID, userID uuid.UUID) (*models.FamilyMember, error) {
	member, err := s.members.GetMember(ctx, familyID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this family")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup membership")
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
