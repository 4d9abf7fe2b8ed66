package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carenest/carenest-backend/internal/users"
	"github.com/carenest/carenest-backend/pkg/config"
	"github.com/carenest/carenest-backend/pkg/db/models"
	pkgerrors "github.com/carenest/carenest-backend/pkg/errors"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRegisterUserRepo struct {
	data      map[string]*models.User
	created   *models.User
	createErr error
}

func newStubRegisterUserRepo() *stubRegisterUserRepo {
	return &stubRegisterUserRepo{data: map[string]*models.User{}}
}

func (s *stubRegisterUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func buildRegisterService(t *testing.T, repo *stubRegisterUserRepo) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		DB:             stubTxRunner{},
		PasswordConfig: config.PasswordConfig{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepo {
			return repo
		},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc
}

func TestRegisterCreatesUser(t *testing.T) {
	repo := newStubRegisterUserRepo()
	svc := buildRegisterService(t, repo)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Jamie",
		LastName:  "Caretaker",
		Email:     "Jamie@Example.com",
		Password:  "long-enough-password",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if repo.created == nil {
		t.Fatal("expected user to be created")
	}
	if repo.created.Email != "jamie@example.com" {
		t.Fatalf("expected lowercased email, got %s", repo.created.Email)
	}
	if repo.created.PasswordHash == "" || repo.created.PasswordHash == "long-enough-password" {
		t.Fatal("expected hashed password")
	}
	if !strings.HasPrefix(repo.created.PasswordHash, "$argon2id$") {
		t.Fatalf("unexpected hash format %s", repo.created.PasswordHash)
	}
	if dto == nil || dto.Email != "jamie@example.com" {
		t.Fatalf("unexpected response dto %+v", dto)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newStubRegisterUserRepo()
	repo.data["taken@example.com"] = &models.User{ID: uuid.New(), Email: "taken@example.com"}
	svc := buildRegisterService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Dup",
		LastName:  "User",
		Email:     "taken@example.com",
		Password:  "long-enough-password",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterBlankEmail(t *testing.T) {
	repo := newStubRegisterUserRepo()
	svc := buildRegisterService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "No",
		LastName:  "Email",
		Email:     "   ",
		Password:  "long-enough-password",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
