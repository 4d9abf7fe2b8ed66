package families

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/pkg/db/models"
	"github.com/carenest/carenest-backend/pkg/enums"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memoryFamilyRepo struct {
	families map[uuid.UUID]*models.Family
	members  map[uuid.UUID][]*models.FamilyMember
}

func newMemoryFamilyRepo() *memoryFamilyRepo {
	return &memoryFamilyRepo{
		families: map[uuid.UUID]*models.Family{},
		members:  map[uuid.UUID][]*models.FamilyMember{},
	}
}

func (m *memoryFamilyRepo) CreateFamily(ctx context.Context, family *models.Family) error {
	family.ID = uuid.New()
	m.families[family.ID] = family
	return nil
}

func (m *memoryFamilyRepo) FindFamilyByID(ctx context.Context, id uuid.UUID) (*models.Family, error) {
	family, ok := m.families[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return family, nil
}

func (m *memoryFamilyRepo) UpdateFamily(ctx context.Context, family *models.Family) error {
	m.families[family.ID] = family
	return nil
}

func (m *memoryFamilyRepo) CreateMember(ctx context.Context, familyID, userID uuid.UUID, role enums.FamilyRole, invitedBy *uuid.UUID, joinedAt time.Time) (*models.FamilyMember, error) {
	member := &models.FamilyMember{
		ID:        uuid.New(),
		FamilyID:  familyID,
		UserID:    userID,
		Role:      role,
		InvitedBy: invitedBy,
		JoinedAt:  joinedAt,
	}
	m.members[familyID] = append(m.members[familyID], member)
	return member, nil
}

func (m *memoryFamilyRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.FamilyMember, error) {
	for _, members := range m.members {
		for _, member := range members {
			if member.UserID == userID {
				return member, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryFamilyRepo) GetMember(ctx context.Context, familyID, userID uuid.UUID) (*models.FamilyMember, error) {
	for _, member := range m.members[familyID] {
		if member.UserID == userID {
			return member, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryFamilyRepo) ListMembers(ctx context.Context, familyID uuid.UUID) ([]FamilyMemberDTO, error) {
	members := make([]FamilyMemberDTO, 0, len(m.members[familyID]))
	for _, member := range m.members[familyID] {
		members = append(members, FamilyMemberDTO{
			ID:       member.ID,
			FamilyID: member.FamilyID,
			UserID:   member.UserID,
			Role:     member.Role,
			JoinedAt: member.JoinedAt,
		})
	}
	return members, nil
}

func (m *memoryFamilyRepo) UpdateMemberRole(ctx context.Context, familyID, userID uuid.UUID, role enums.FamilyRole) error {
	for _, member := range m.members[familyID] {
		if member.UserID == userID {
			member.Role = role
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryFamilyRepo) DeleteMember(ctx context.Context, familyID, userID uuid.UUID) error {
	members := m.members[familyID]
	for i, member := range members {
		if member.UserID == userID {
			m.members[familyID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memoryFamilyRepo) DeleteMembersByFamily(ctx context.Context, familyID uuid.UUID) error {
	delete(m.members, familyID)
	return nil
}

func (m *memoryFamilyRepo) CountMembersWithRoles(ctx context.Context, familyID uuid.UUID, roles ...enums.FamilyRole) (int64, error) {
	var count int64
	for _, member := range m.members[familyID] {
		for _, role := range roles {
			if member.Role == role {
				count++
				break
			}
		}
	}
	return count, nil
}

func buildFamilyService(t *testing.T, repo *memoryFamilyRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:   stubTxRunner{},
		Repo: repo,
		TxRepoFactory: func(tx *gorm.DB) familyRepository {
			return repo
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateFamilyAddsAdminMembership(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	userID := uuid.New()

	dto, err := svc.Create(context.Background(), userID, CreateFamilyInput{Name: "  The Smiths  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Name != "The Smiths" {
		t.Fatalf("expected trimmed name, got %q", dto.Name)
	}
	if dto.CreatedBy != userID {
		t.Fatalf("creator mismatch")
	}

	member, err := repo.GetMember(context.Background(), dto.ID, userID)
	if err != nil {
		t.Fatalf("expected membership: %v", err)
	}
	if member.Role != enums.FamilyRoleAdmin {
		t.Fatalf("expected admin role, got %s", member.Role)
	}
}

func TestCreateFamilyRejectsExistingMember(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	userID := uuid.New()

	if _, err := svc.Create(context.Background(), userID, CreateFamilyInput{Name: "First"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Create(context.Background(), userID, CreateFamilyInput{Name: "Second"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetMineResolvesFamilyThroughMembership(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, CreateFamilyInput{Name: "Mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := svc.GetMine(context.Background(), userID)
	if err != nil {
		t.Fatalf("get mine: %v", err)
	}
	if mine.ID != created.ID {
		t.Fatalf("expected family %s, got %s", created.ID, mine.ID)
	}

	_, err = svc.GetMine(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for user with no family, got %v", err)
	}
}

func TestLeaveLastAdminRejected(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	adminID := uuid.New()

	dto, err := svc.Create(context.Background(), adminID, CreateFamilyInput{Name: "Guarded"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.Leave(context.Background(), adminID, dto.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict leaving as last admin, got %v", err)
	}
}

func TestLeaveAdminWithBackupSucceeds(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	adminID := uuid.New()
	secondAdminID := uuid.New()

	dto, err := svc.Create(context.Background(), adminID, CreateFamilyInput{Name: "Shared"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateMember(context.Background(), dto.ID, secondAdminID, enums.FamilyRoleAdmin, &adminID, time.Now()); err != nil {
		t.Fatalf("seed second admin: %v", err)
	}

	if err := svc.Leave(context.Background(), adminID, dto.ID); err != nil {
		t.Fatalf("leave with backup admin: %v", err)
	}
	if _, err := repo.GetMember(context.Background(), dto.ID, adminID); err == nil {
		t.Fatal("expected membership removed")
	}
}

func TestMemberCanLeaveButNotRemoveOthers(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	adminID := uuid.New()
	memberID := uuid.New()

	dto, err := svc.Create(context.Background(), adminID, CreateFamilyInput{Name: "Leavers"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateMember(context.Background(), dto.ID, memberID, enums.FamilyRoleMember, &adminID, time.Now()); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	err = svc.RemoveMember(context.Background(), memberID, dto.ID, adminID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if err := svc.Leave(context.Background(), memberID, dto.ID); err != nil {
		t.Fatalf("self-leave: %v", err)
	}
}

func TestRemoveMemberRejectsSelf(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	adminID := uuid.New()
	secondAdminID := uuid.New()

	dto, err := svc.Create(context.Background(), adminID, CreateFamilyInput{Name: "NoSelf"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateMember(context.Background(), dto.ID, secondAdminID, enums.FamilyRoleAdmin, &adminID, time.Now()); err != nil {
		t.Fatalf("seed second admin: %v", err)
	}

	err = svc.RemoveMember(context.Background(), adminID, dto.ID, adminID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error on self-removal, got %v", err)
	}
}

func TestDeleteFamilyCreatorOnly(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	creatorID := uuid.New()
	memberID := uuid.New()

	dto, err := svc.Create(context.Background(), creatorID, CreateFamilyInput{Name: "Closing"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateMember(context.Background(), dto.ID, memberID, enums.FamilyRoleAdmin, &creatorID, time.Now()); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	err = svc.Delete(context.Background(), memberID, dto.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-creator, got %v", err)
	}

	if err := svc.Delete(context.Background(), creatorID, dto.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	family, err := repo.FindFamilyByID(context.Background(), dto.ID)
	if err != nil {
		t.Fatalf("load family: %v", err)
	}
	if family.IsActive {
		t.Fatal("expected family deactivated")
	}
	if members, _ := repo.ListMembers(context.Background(), dto.ID); len(members) != 0 {
		t.Fatalf("expected empty roster, got %d members", len(members))
	}
}

func TestUpdateMemberRoleRejectsSelfChange(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	adminID := uuid.New()
	secondAdminID := uuid.New()

	dto, err := svc.Create(context.Background(), adminID, CreateFamilyInput{Name: "Demote"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateMember(context.Background(), dto.ID, secondAdminID, enums.FamilyRoleAdmin, &adminID, time.Now()); err != nil {
		t.Fatalf("seed second admin: %v", err)
	}

	err = svc.UpdateMemberRole(context.Background(), adminID, dto.ID, adminID, enums.FamilyRoleMember)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error on self role change, got %v", err)
	}

	member, err := repo.GetMember(context.Background(), dto.ID, adminID)
	if err != nil {
		t.Fatalf("load member: %v", err)
	}
	if member.Role != enums.FamilyRoleAdmin {
		t.Fatalf("expected role unchanged, got %s", member.Role)
	}
}

func TestUpdateFamilyRequiresAdmin(t *testing.T) {
	repo := newMemoryFamilyRepo()
	svc := buildFamilyService(t, repo)
	adminID := uuid.New()
	memberID := uuid.New()

	dto, err := svc.Create(context.Background(), adminID, CreateFamilyInput{Name: "Original"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateMember(context.Background(), dto.ID, memberID, enums.FamilyRoleMember, &adminID, time.Now()); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	newName := "Renamed"
	_, err = svc.Update(context.Background(), memberID, dto.ID, UpdateFamilyInput{Name: &newName})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	updated, err := svc.Update(context.Background(), adminID, dto.ID, UpdateFamilyInput{Name: &newName})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("expected renamed family, got %q", updated.Name)
	}
}
