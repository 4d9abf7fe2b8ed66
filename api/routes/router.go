package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carenest/carenest-backend/api/controllers"
	"github.com/carenest/carenest-backend/api/middleware"
	"github.com/carenest/carenest-backend/internal/auth"
	"github.com/carenest/carenest-backend/internal/chat"
	"github.com/carenest/carenest-backend/internal/directory"
	"github.com/carenest/carenest-backend/internal/families"
	"github.com/carenest/carenest-backend/internal/invitations"
	"github.com/carenest/carenest-backend/internal/notifications"
	"github.com/carenest/carenest-backend/internal/reminders"
	"github.com/carenest/carenest-backend/internal/reviews"
	"github.com/carenest/carenest-backend/pkg/auth/session"
	"github.com/carenest/carenest-backend/pkg/config"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/redis"
)

// Services bundles everything the router needs so cmd/api stays readable.
type Services struct {
	Auth          auth.Service
	Register      auth.RegisterService
	Families      families.Service
	Invitations   invitations.Service
	Directory     directory.Service
	Reviews       reviews.Service
	Chat          chat.Service
	Reminders     reminders.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())

		// The directory is browsable without an account.
		r.Route("/v1/facilities", func(r chi.Router) {
			r.Get("/", controllers.ListFacilities(svcs.Directory, logg))
			r.Get("/{facilityID}", controllers.GetFacility(svcs.Directory, logg))
			r.Get("/{facilityID}/reviews", controllers.ListFacilityReviews(svcs.Reviews, logg))
		})
		r.Route("/v1/providers", func(r chi.Router) {
			r.Get("/", controllers.ListProviders(svcs.Directory, logg))
			r.Get("/{providerID}", controllers.GetProvider(svcs.Directory, logg))
			r.Get("/{providerID}/reviews", controllers.ListProviderReviews(svcs.Reviews, logg))
		})
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Register, svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/families", func(r chi.Router) {
			r.Post("/", controllers.CreateFamily(svcs.Families, logg))
			r.Get("/mine", controllers.GetMyFamily(svcs.Families, logg))
			r.Route("/{familyID}", func(r chi.Router) {
				r.Get("/", controllers.GetFamily(svcs.Families, logg))
				r.Put("/", controllers.UpdateFamily(svcs.Families, logg))
				r.Delete("/", controllers.DeleteFamily(svcs.Families, logg))
				r.Post("/leave", controllers.LeaveFamily(svcs.Families, logg))
				r.Get("/members", controllers.ListFamilyMembers(svcs.Families, logg))
				r.Put("/members/{userID}/role", controllers.UpdateFamilyMemberRole(svcs.Families, logg))
				r.Delete("/members/{userID}", controllers.RemoveFamilyMember(svcs.Families, logg))
				r.Get("/invitations", controllers.ListFamilyInvitations(svcs.Invitations, logg))
			})
		})

		r.Route("/v1/invitations", func(r chi.Router) {
			r.Post("/", controllers.CreateInvitation(svcs.Invitations, logg))
			r.Get("/mine", controllers.ListMyInvitations(svcs.Invitations, logg))
			r.Post("/{invitationID}/accept", controllers.AcceptInvitation(svcs.Invitations, logg))
			r.Post("/{invitationID}/decline", controllers.DeclineInvitation(svcs.Invitations, logg))
			r.Post("/{invitationID}/cancel", controllers.CancelInvitation(svcs.Invitations, logg))
		})

		r.Route("/v1/facilities/{facilityID}/reviews", func(r chi.Router) {
			r.Post("/", controllers.CreateFacilityReview(svcs.Reviews, logg))
			r.Put("/", controllers.UpdateFacilityReview(svcs.Reviews, logg))
			r.Delete("/", controllers.DeleteFacilityReview(svcs.Reviews, logg))
		})
		r.Route("/v1/providers/{providerID}/reviews", func(r chi.Router) {
			r.Post("/", controllers.CreateProviderReview(svcs.Reviews, logg))
			r.Put("/", controllers.UpdateProviderReview(svcs.Reviews, logg))
			r.Delete("/", controllers.DeleteProviderReview(svcs.Reviews, logg))
		})

		r.Route("/v1/conversations", func(r chi.Router) {
			r.Post("/", controllers.StartConversation(svcs.Chat, logg))
			r.Get("/", controllers.ListConversations(svcs.Chat, logg))
			r.Route("/{conversationID}", func(r chi.Router) {
				r.Get("/messages", controllers.ListMessages(svcs.Chat, logg))
				r.Post("/messages", controllers.SendMessage(svcs.Chat, logg))
				r.Post("/read", controllers.MarkConversationRead(svcs.Chat, logg))
			})
		})

		r.Route("/v1/reminders", func(r chi.Router) {
			r.Post("/", controllers.CreateReminder(svcs.Reminders, logg))
			r.Get("/", controllers.ListReminders(svcs.Reminders, logg))
			r.Get("/stats", controllers.ReminderStats(svcs.Reminders, logg))
			r.Route("/{reminderID}", func(r chi.Router) {
				r.Get("/", controllers.GetReminder(svcs.Reminders, logg))
				r.Put("/", controllers.UpdateReminder(svcs.Reminders, logg))
				r.Delete("/", controllers.DeleteReminder(svcs.Reminders, logg))
				r.Post("/complete", controllers.CompleteReminder(svcs.Reminders, logg))
				r.Post("/uncomplete", controllers.UncompleteReminder(svcs.Reminders, logg))
			})
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(svcs.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Get("/ping", controllers.AdminPing())

		r.Route("/v1/facilities", func(r chi.Router) {
			r.Post("/", controllers.CreateFacility(svcs.Directory, logg))
			r.Put("/{facilityID}", controllers.UpdateFacility(svcs.Directory, logg))
			r.Post("/{facilityID}/deactivate", controllers.DeactivateFacility(svcs.Directory, logg))
		})
		r.Route("/v1/providers", func(r chi.Router) {
			r.Post("/", controllers.CreateProvider(svcs.Directory, logg))
			r.Put("/{providerID}", controllers.UpdateProvider(svcs.Directory, logg))
			r.Post("/{providerID}/deactivate", controllers.DeactivateProvider(svcs.Directory, logg))
		})
	})

	return r
}
