package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/carenest/carenest-backend/api/routes"
	"github.com/carenest/carenest-backend/internal/auth"
	"github.com/carenest/carenest-backend/internal/chat"
	"github.com/carenest/carenest-backend/internal/directory"
	"github.com/carenest/carenest-backend/internal/families"
	"github.com/carenest/carenest-backend/internal/invitations"
	"github.com/carenest/carenest-backend/internal/notifications"
	"github.com/carenest/carenest-backend/internal/reminders"
	"github.com/carenest/carenest-backend/internal/reviews"
	"github.com/carenest/carenest-backend/internal/users"
	"github.com/carenest/carenest-backend/pkg/auth/session"
	"github.com/carenest/carenest-backend/pkg/config"
	"github.com/carenest/carenest-backend/pkg/db"
	"github.com/carenest/carenest-backend/pkg/logger"
	"github.com/carenest/carenest-backend/pkg/migrate"
	"github.com/carenest/carenest-backend/pkg/outbox"
	"github.com/carenest/carenest-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, sessionManager, svcs),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
) (routes.Services, error) {
	gdb := dbClient.DB()

	userRepo := users.NewRepository(gdb)
	familyRepo := families.NewRepository(gdb)
	directoryRepo := directory.NewRepository(gdb)
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		MembershipRepo: familyRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Services{}, err
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	familiesService, err := families.NewService(families.ServiceParams{
		DB:   dbClient,
		Repo: familyRepo,
	})
	if err != nil {
		return routes.Services{}, err
	}

	invitationsService, err := invitations.NewService(invitations.ServiceParams{
		DB:      dbClient,
		Repo:    invitations.NewRepository(gdb),
		Members: familyRepo,
		Users:   userRepo,
		Outbox:  outboxSvc,
		TTL:     cfg.Invitations.TTL(),
	})
	if err != nil {
		return routes.Services{}, err
	}

	directoryService, err := directory.NewService(directory.ServiceParams{
		Repo: directoryRepo,
	})
	if err != nil {
		return routes.Services{}, err
	}

	reviewsService, err := reviews.NewService(reviews.ServiceParams{
		DB:      dbClient,
		Repo:    reviews.NewRepository(gdb),
		Targets: directoryRepo,
	})
	if err != nil {
		return routes.Services{}, err
	}

	chatService, err := chat.NewService(chat.ServiceParams{
		DB:        dbClient,
		Repo:      chat.NewRepository(gdb),
		Providers: directoryRepo,
		Staff:     userRepo,
		Outbox:    outboxSvc,
	})
	if err != nil {
		return routes.Services{}, err
	}

	remindersService, err := reminders.NewService(reminders.ServiceParams{
		Repo:    reminders.NewRepository(gdb),
		Members: familyRepo,
	})
	if err != nil {
		return routes.Services{}, err
	}

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:   notifications.NewRepository(gdb),
		Cache:  redisClient,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:          authService,
		Register:      registerService,
		Families:      familiesService,
		Invitations:   invitationsService,
		Directory:     directoryService,
		Reviews:       reviewsService,
		Chat:          chatService,
		Reminders:     remindersService,
		Notifications: notificationsService,
	}, nil
}
