package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	authsvc "github.com/carenest/carenest-backend/internal/auth"
	"github.com/carenest/carenest-backend/internal/chat"
	"github.com/carenest/carenest-backend/internal/directory"
	"github.com/carenest/carenest-backend/internal/families"
	"github.com/carenest/carenest-backend/internal/invitations"
	"github.com/carenest/carenest-backend/internal/notifications"
	"github.com/carenest/carenest-backend/internal/reminders"
	"github.com/carenest/carenest-backend/internal/reviews"
	"github.com/carenest/carenest-backend/internal/users"
	pkgAuth "github.com/carenest/carenest-backend/pkg/auth"
	"github.com/carenest/carenest-backend/pkg/auth/session"
	"github.com/carenest/carenest-backend/pkg/config"
	"github.com/carenest/carenest-backend/pkg/enums"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/pagination"
)

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Refresh(ctx context.Context, req authsvc.RefreshRequest) (*authsvc.RefreshResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req authsvc.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

type stubFamiliesService struct{}

func (stubFamiliesService) Create(ctx context.Context, userID uuid.UUID, input families.CreateFamilyInput) (*families.FamilyDTO, error) {
	panic("unimplemented")
}

func (stubFamiliesService) GetByID(ctx context.Context, actorID, familyID uuid.UUID) (*families.FamilyDTO, error) {
	panic("unimplemented")
}

func (stubFamiliesService) GetMine(ctx context.Context, actorID uuid.UUID) (*families.FamilyDTO, error) {
	panic("unimplemented")
}

func (stubFamiliesService) Update(ctx context.Context, actorID, familyID uuid.UUID, input families.UpdateFamilyInput) (*families.FamilyDTO, error) {
	panic("unimplemented")
}

func (stubFamiliesService) ListMembers(ctx context.Context, actorID, familyID uuid.UUID) ([]families.FamilyMemberDTO, error) {
	panic("unimplemented")
}

func (stubFamiliesService) UpdateMemberRole(ctx context.Context, actorID, familyID, targetUserID uuid.UUID, role enums.FamilyRole) error {
	panic("unimplemented")
}

func (stubFamiliesService) RemoveMember(ctx context.Context, actorID, familyID, targetUserID uuid.UUID) error {
	panic("unimplemented")
}

func (stubFamiliesService) Delete(ctx context.Context, actorID, familyID uuid.UUID) error {
	panic("unimplemented")
}

func (stubFamiliesService) Leave(ctx context.Context, actorID, familyID uuid.UUID) error {
	panic("unimplemented")
}

type stubInvitationsService struct{}

func (stubInvitationsService) Create(ctx context.Context, actorID, familyID uuid.UUID, input invitations.CreateInvitationInput) (*invitations.InvitationDTO, error) {
	panic("unimplemented")
}

func (stubInvitationsService) ListForFamily(ctx context.Context, actorID, familyID uuid.UUID, status *enums.InvitationStatus) ([]invitations.InvitationDTO, error) {
	panic("unimplemented")
}

func (stubInvitationsService) ListMine(ctx context.Context, userID uuid.UUID) ([]invitations.InvitationDTO, error) {
	return nil, nil
}

func (stubInvitationsService) Accept(ctx context.Context, userID, invitationID uuid.UUID) (*invitations.InvitationDTO, error) {
	panic("unimplemented")
}

func (stubInvitationsService) Decline(ctx context.Context, userID, invitationID uuid.UUID) (*invitations.InvitationDTO, error) {
	panic("unimplemented")
}

func (stubInvitationsService) Cancel(ctx context.Context, actorID, invitationID uuid.UUID) error {
	panic("unimplemented")
}

type stubDirectoryService struct{}

func (stubDirectoryService) ListFacilities(ctx context.Context, filter directory.FacilityFilter) (*directory.FacilityPage, error) {
	return &directory.FacilityPage{}, nil
}

func (stubDirectoryService) GetFacility(ctx context.Context, id uuid.UUID) (*directory.FacilityDTO, error) {
	panic("unimplemented")
}

func (stubDirectoryService) CreateFacility(ctx context.Context, input directory.CreateFacilityInput) (*directory.FacilityDTO, error) {
	panic("unimplemented")
}

func (stubDirectoryService) UpdateFacility(ctx context.Context, id uuid.UUID, input directory.UpdateFacilityInput) (*directory.FacilityDTO, error) {
	panic("unimplemented")
}

func (stubDirectoryService) DeactivateFacility(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubDirectoryService) ListProviders(ctx context.Context, filter directory.ProviderFilter) (*directory.ProviderPage, error) {
	return &directory.ProviderPage{}, nil
}

func (stubDirectoryService) GetProvider(ctx context.Context, id uuid.UUID) (*directory.ProviderDTO, error) {
	panic("unimplemented")
}

func (stubDirectoryService) CreateProvider(ctx context.Context, input directory.CreateProviderInput) (*directory.ProviderDTO, error) {
	panic("unimplemented")
}

func (stubDirectoryService) UpdateProvider(ctx context.Context, id uuid.UUID, input directory.UpdateProviderInput) (*directory.ProviderDTO, error) {
	panic("unimplemented")
}

func (stubDirectoryService) DeactivateProvider(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

type stubReviewsService struct{}

func (stubReviewsService) CreateFacilityReview(ctx context.Context, userID, facilityID uuid.UUID, input reviews.ReviewInput) (*reviews.ReviewDTO, error) {
	panic("unimplemented")
}

func (stubReviewsService) UpdateFacilityReview(ctx context.Context, userID, facilityID uuid.UUID, input reviews.ReviewInput) (*reviews.ReviewDTO, error) {
	panic("unimplemented")
}

func (stubReviewsService) DeleteFacilityReview(ctx context.Context, userID, facilityID uuid.UUID) error {
	panic("unimplemented")
}

func (stubReviewsService) ListFacilityReviews(ctx context.Context, facilityID uuid.UUID, page pagination.Params) (*reviews.ReviewPage, error) {
	return &reviews.ReviewPage{}, nil
}

func (stubReviewsService) CreateProviderReview(ctx context.Context, userID, providerID uuid.UUID, input reviews.ReviewInput) (*reviews.ReviewDTO, error) {
	panic("unimplemented")
}

func (stubReviewsService) UpdateProviderReview(ctx context.Context, userID, providerID uuid.UUID, input reviews.ReviewInput) (*reviews.ReviewDTO, error) {
	panic("unimplemented")
}

func (stubReviewsService) DeleteProviderReview(ctx context.Context, userID, providerID uuid.UUID) error {
	panic("unimplemented")
}

func (stubReviewsService) ListProviderReviews(ctx context.Context, providerID uuid.UUID, page pagination.Params) (*reviews.ReviewPage, error) {
	return &reviews.ReviewPage{}, nil
}

type stubChatService struct{}

func (stubChatService) StartConversation(ctx context.Context, actor chat.Actor, providerID uuid.UUID) (*chat.ConversationDTO, error) {
	panic("unimplemented")
}

func (stubChatService) ListConversations(ctx context.Context, actor chat.Actor, limit int) ([]chat.ConversationDTO, error) {
	return nil, nil
}

func (stubChatService) SendMessage(ctx context.Context, actor chat.Actor, conversationID uuid.UUID, input chat.SendMessageInput) (*chat.MessageDTO, error) {
	panic("unimplemented")
}

func (stubChatService) ListMessages(ctx context.Context, actor chat.Actor, conversationID uuid.UUID, page pagination.Params) (*chat.MessagePage, error) {
	panic("unimplemented")
}

func (stubChatService) MarkRead(ctx context.Context, actor chat.Actor, conversationID uuid.UUID) (int64, error) {
	panic("unimplemented")
}

type stubRemindersService struct{}

func (stubRemindersService) Create(ctx context.Context, ownerID uuid.UUID, input reminders.CreateReminderInput) (*reminders.ReminderDTO, error) {
	panic("unimplemented")
}

func (stubRemindersService) Get(ctx context.Context, userID, id uuid.UUID) (*reminders.ReminderDTO, error) {
	panic("unimplemented")
}

func (stubRemindersService) List(ctx context.Context, userID uuid.UUID, filter reminders.ListFilter) ([]reminders.ReminderDTO, error) {
	return nil, nil
}

func (stubRemindersService) Update(ctx context.Context, userID, id uuid.UUID, input reminders.UpdateReminderInput) (*reminders.ReminderDTO, error) {
	panic("unimplemented")
}

func (stubRemindersService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubRemindersService) Complete(ctx context.Context, userID, id uuid.UUID) (*reminders.ReminderDTO, error) {
	panic("unimplemented")
}

func (stubRemindersService) Uncomplete(ctx context.Context, userID, id uuid.UUID) (*reminders.ReminderDTO, error) {
	panic("unimplemented")
}

func (stubRemindersService) Stats(ctx context.Context, userID uuid.UUID) (*reminders.Stats, error) {
	return &reminders.Stats{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) Push(ctx context.Context, input notifications.PushInput) (*notifications.NotificationDTO, error) {
	panic("unimplemented")
}

func (stubNotificationsService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page pagination.Params) (*notifications.NotificationPage, error) {
	return &notifications.NotificationPage{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		nil, // *redis.Client, rate-limited routes are not exercised here
		stubSessionChecker{},
		Services{
			Auth:          stubAuthService{},
			Register:      stubRegisterService{},
			Families:      stubFamiliesService{},
			Invitations:   stubInvitationsService{},
			Directory:     stubDirectoryService{},
			Reviews:       stubReviewsService{},
			Chat:          stubChatService{},
			Reminders:     stubRemindersService{},
			Notifications: stubNotificationsService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestPublicDirectoryNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/api/public/v1/facilities/", "/api/public/v1/providers/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestAuthenticatedListsRespondWithToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.UserRoleUser)

	for _, path := range []string{
		"/api/v1/invitations/mine",
		"/api/v1/conversations/",
		"/api/v1/reminders/",
		"/api/v1/reminders/stats",
		"/api/v1/notifications/",
		"/api/v1/notifications/unread-count",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}
