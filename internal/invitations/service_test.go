package invitations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
	"github.com/carenest/carenest-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memoryInvitationRepo struct {
	rows map[uuid.UUID]*models.Invitation
}

func newMemoryInvitationRepo() *memoryInvitationRepo {
	return &memoryInvitationRepo{rows: map[uuid.UUID]*models.Invitation{}}
}

func (m *memoryInvitationRepo) Create(ctx context.Context, inv *models.Invitation) error {
	for _, row := range m.rows {
		if row.FamilyID == inv.FamilyID && row.Email == inv.Email && row.Status == enums.InvitationStatusPending {
			return fmt.Errorf(`duplicate key value violates unique constraint "ux_invitations_pending_family_email"`)
		}
	}
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	m.rows[inv.ID] = inv
	return nil
}

func (m *memoryInvitationRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	inv, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *inv
	return &copied, nil
}

func (m *memoryInvitationRepo) ListByFamily(ctx context.Context, familyID uuid.UUID, status *enums.InvitationStatus) ([]models.Invitation, error) {
	var rows []models.Invitation
	for _, inv := range m.rows {
		if inv.FamilyID != familyID {
			continue
		}
		if status != nil && inv.Status != *status {
			continue
		}
		rows = append(rows, *inv)
	}
	return rows, nil
}

func (m *memoryInvitationRepo) ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]models.Invitation, error) {
	var rows []models.Invitation
	for _, inv := range m.rows {
		if inv.Email == email && inv.Status == enums.InvitationStatusPending && inv.ExpiresAt.After(now) {
			rows = append(rows, *inv)
		}
	}
	return rows, nil
}

func (m *memoryInvitationRepo) Update(ctx context.Context, inv *models.Invitation) error {
	copied := *inv
	m.rows[inv.ID] = &copied
	return nil
}

func (m *memoryInvitationRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	delete(m.rows, id)
	return nil
}

type memoryMembershipRepo struct {
	families map[uuid.UUID]*models.Family
	members  map[uuid.UUID]*models.FamilyMember
}

func newMemoryMembershipRepo() *memoryMembershipRepo {
	return &memoryMembershipRepo{
		families: map[uuid.UUID]*models.Family{},
		members:  map[uuid.UUID]*models.FamilyMember{},
	}
}

func (m *memoryMembershipRepo) addFamily(name string) uuid.UUID {
	id := uuid.New()
	m.families[id] = &models.Family{ID: id, Name: name}
	return id
}

func (m *memoryMembershipRepo) addMember(familyID, userID uuid.UUID, role enums.FamilyRole) {
	m.members[userID] = &models.FamilyMember{
		ID:       uuid.New(),
		FamilyID: familyID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	}
}

func (m *memoryMembershipRepo) GetMember(ctx context.Context, familyID, userID uuid.UUID) (*models.FamilyMember, error) {
	member, ok := m.members[userID]
	if !ok || member.FamilyID != familyID {
		return nil, gorm.ErrRecordNotFound
	}
	return member, nil
}

func (m *memoryMembershipRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.FamilyMember, error) {
	member, ok := m.members[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return member, nil
}

func (m *memoryMembershipRepo) CreateMember(ctx context.Context, familyID, userID uuid.UUID, role enums.FamilyRole, invitedBy *uuid.UUID, joinedAt time.Time) (*models.FamilyMember, error) {
	if _, ok := m.members[userID]; ok {
		return nil, fmt.Errorf(`duplicate key value violates unique constraint "ux_family_members_user"`)
	}
	member := &models.FamilyMember{
		ID:        uuid.New(),
		FamilyID:  familyID,
		UserID:    userID,
		Role:      role,
		InvitedBy: invitedBy,
		JoinedAt:  joinedAt,
	}
	m.members[userID] = member
	return member, nil
}

func (m *memoryMembershipRepo) FindFamilyByID(ctx context.Context, id uuid.UUID) (*models.Family, error) {
	family, ok := m.families[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return family, nil
}

type stubUserRepo struct {
	byID map[uuid.UUID]*models.User
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type invitationFixture struct {
	svc      Service
	repo     *memoryInvitationRepo
	members  *memoryMembershipRepo
	users    *stubUserRepo
	emitter  *recordingEmitter
	familyID uuid.UUID
	adminID  uuid.UUID
}

func buildInvitationFixture(t *testing.T) *invitationFixture {
	t.Helper()
	repo := newMemoryInvitationRepo()
	members := newMemoryMembershipRepo()
	users := &stubUserRepo{byID: map[uuid.UUID]*models.User{}}
	emitter := &recordingEmitter{}

	familyID := members.addFamily("Care Circle")
	adminID := uuid.New()
	members.addMember(familyID, adminID, enums.FamilyRoleAdmin)
	users.byID[adminID] = &models.User{ID: adminID, Email: "admin@example.com"}

	svc, err := NewService(ServiceParams{
		DB:      stubTxRunner{},
		Repo:    repo,
		Members: members,
		Users:   users,
		Outbox:  emitter,
		TTL:     7 * 24 * time.Hour,
		TxRepoFactory: func(tx *gorm.DB) invitationRepository {
			return repo
		},
		TxMemberFactory: func(tx *gorm.DB) membershipRepository {
			return members
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &invitationFixture{
		svc:      svc,
		repo:     repo,
		members:  members,
		users:    users,
		emitter:  emitter,
		familyID: familyID,
		adminID:  adminID,
	}
}

func (f *invitationFixture) addUser(t *testing.T, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.users.byID[id] = &models.User{ID: id, Email: email}
	return id
}

func TestNewServiceDefaultsTxFactories(t *testing.T) {
	_, err := NewService(ServiceParams{
		DB:      stubTxRunner{},
		Repo:    newMemoryInvitationRepo(),
		Members: newMemoryMembershipRepo(),
		Users:   &stubUserRepo{byID: map[uuid.UUID]*models.User{}},
		Outbox:  &recordingEmitter{},
		TTL:     7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("expected factories to default, got %v", err)
	}
}

func TestCreateInvitation(t *testing.T) {
	f := buildInvitationFixture(t)

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "  Grandma@Example.com ",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Email != "grandma@example.com" {
		t.Fatalf("expected normalized email, got %q", dto.Email)
	}
	if dto.Status != enums.InvitationStatusPending {
		t.Fatalf("expected pending, got %s", dto.Status)
	}
	if dto.FamilyName != "Care Circle" {
		t.Fatalf("expected family name on dto, got %q", dto.FamilyName)
	}
	if remaining := time.Until(dto.ExpiresAt); remaining < 6*24*time.Hour {
		t.Fatalf("expected roughly a week of validity, got %s", remaining)
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.EventInvitationCreated {
		t.Fatalf("expected invitation_created event, got %+v", f.emitter.events)
	}
}

func TestCreateInvitationRequiresAdmin(t *testing.T) {
	f := buildInvitationFixture(t)
	memberID := f.addUser(t, "member@example.com")
	f.members.addMember(f.familyID, memberID, enums.FamilyRoleMember)

	_, err := f.svc.Create(context.Background(), memberID, f.familyID, CreateInvitationInput{
		Email: "someone@example.com",
		Role:  enums.FamilyRoleMember,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateInvitationRejectsSecondPending(t *testing.T) {
	f := buildInvitationFixture(t)
	input := CreateInvitationInput{Email: "grandma@example.com", Role: enums.FamilyRoleMember}

	if _, err := f.svc.Create(context.Background(), f.adminID, f.familyID, input); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := f.svc.Create(context.Background(), f.adminID, f.familyID, input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on second pending invitation, got %v", err)
	}
}

func TestCreateInvitationRejectsMemberOfAnotherFamily(t *testing.T) {
	f := buildInvitationFixture(t)
	otherFamily := f.members.addFamily("Other")
	takenID := f.addUser(t, "taken@example.com")
	f.members.addMember(otherFamily, takenID, enums.FamilyRoleMember)

	_, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "taken@example.com",
		Role:  enums.FamilyRoleMember,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAcceptInvitation(t *testing.T) {
	f := buildInvitationFixture(t)
	inviteeID := f.addUser(t, "grandma@example.com")

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	accepted, err := f.svc.Accept(context.Background(), inviteeID, dto.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != enums.InvitationStatusAccepted || accepted.AcceptedAt == nil {
		t.Fatalf("expected accepted invitation, got %+v", accepted)
	}

	member, err := f.members.GetMember(context.Background(), f.familyID, inviteeID)
	if err != nil {
		t.Fatalf("expected membership: %v", err)
	}
	if member.Role != enums.FamilyRoleMember {
		t.Fatalf("expected member role, got %s", member.Role)
	}
	last := f.emitter.events[len(f.emitter.events)-1]
	if last.EventType != enums.EventInvitationDecided {
		t.Fatalf("expected invitation_decided event, got %s", last.EventType)
	}
}

func TestAcceptExpiredInvitation(t *testing.T) {
	f := buildInvitationFixture(t)
	inviteeID := f.addUser(t, "grandma@example.com")

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.repo.rows[dto.ID].ExpiresAt = time.Now().Add(-time.Hour)

	_, err = f.svc.Accept(context.Background(), inviteeID, dto.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if f.repo.rows[dto.ID].Status != enums.InvitationStatusPending {
		t.Fatalf("expected row left pending for the expiry sweep, got %s", f.repo.rows[dto.ID].Status)
	}
	if _, err := f.members.GetMember(context.Background(), f.familyID, inviteeID); err == nil {
		t.Fatal("expected no membership for expired invitation")
	}
}

func TestAcceptInvitationWrongEmail(t *testing.T) {
	f := buildInvitationFixture(t)
	strangerID := f.addUser(t, "stranger@example.com")

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Accept(context.Background(), strangerID, dto.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDeclineInvitation(t *testing.T) {
	f := buildInvitationFixture(t)
	inviteeID := f.addUser(t, "grandma@example.com")

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	declined, err := f.svc.Decline(context.Background(), inviteeID, dto.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != enums.InvitationStatusDeclined || declined.DeclinedAt == nil {
		t.Fatalf("expected declined invitation, got %+v", declined)
	}
	if _, err := f.members.GetMember(context.Background(), f.familyID, inviteeID); err == nil {
		t.Fatal("expected no membership after decline")
	}
}

func TestCancelInvitation(t *testing.T) {
	f := buildInvitationFixture(t)

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.Cancel(context.Background(), f.adminID, dto.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := f.repo.rows[dto.ID]; ok {
		t.Fatal("expected invitation removed from pending set")
	}

	// A fresh invitation to the same address is allowed after cancellation.
	if _, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	}); err != nil {
		t.Fatalf("re-invite after cancel: %v", err)
	}
}

func TestCancelByDemotedInviterAllowed(t *testing.T) {
	f := buildInvitationFixture(t)
	secondAdminID := f.addUser(t, "second@example.com")
	f.members.addMember(f.familyID, secondAdminID, enums.FamilyRoleAdmin)

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.members.members[f.adminID].Role = enums.FamilyRoleMember

	if err := f.svc.Cancel(context.Background(), f.adminID, dto.ID); err != nil {
		t.Fatalf("inviter cancel after demotion: %v", err)
	}
	if _, ok := f.repo.rows[dto.ID]; ok {
		t.Fatal("expected invitation removed from pending set")
	}
}

func TestCancelByNonInviterMemberRejected(t *testing.T) {
	f := buildInvitationFixture(t)
	memberID := f.addUser(t, "member@example.com")
	f.members.addMember(f.familyID, memberID, enums.FamilyRoleMember)

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = f.svc.Cancel(context.Background(), memberID, dto.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCancelDecidedInvitationRejected(t *testing.T) {
	f := buildInvitationFixture(t)
	inviteeID := f.addUser(t, "grandma@example.com")

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Decline(context.Background(), inviteeID, dto.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	err = f.svc.Cancel(context.Background(), f.adminID, dto.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListMineReturnsOnlyPending(t *testing.T) {
	f := buildInvitationFixture(t)
	inviteeID := f.addUser(t, "grandma@example.com")

	dto, err := f.svc.Create(context.Background(), f.adminID, f.familyID, CreateInvitationInput{
		Email: "grandma@example.com",
		Role:  enums.FamilyRoleMember,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := f.svc.ListMine(context.Background(), inviteeID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != dto.ID {
		t.Fatalf("expected one pending invitation, got %+v", mine)
	}

	if _, err := f.svc.Decline(context.Background(), inviteeID, dto.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}
	mine, err = f.svc.ListMine(context.Background(), inviteeID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected no pending invitations, got %+v", mine)
	}
}
