package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/proroto/workorder-service/internal/api/http"
	"github.com/proroto/workorder-service/internal/api/http/handlers"
	"github.com/proroto/workorder-service/internal/auth"
	"github.com/proroto/workorder-service/internal/config"
	"github.com/proroto/workorder-service/internal/domain"
	"github.com/proroto/workorder-service/internal/events"
	"github.com/proroto/workorder-service/internal/notify"
	"github.com/proroto/workorder-service/internal/observability"
	"github.com/proroto/workorder-service/internal/persistence"
	"github.com/proroto/workorder-service/internal/realtime"
	"github.com/proroto/workorder-service/internal/repository"
	"github.com/proroto/workorder-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	if err := persistence.SyncTransitionGuard(ctx, pg.PoolHandle(), logger); err != nil {
		logger.Fatal("failed to sync transition guard", zap.Error(err))
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	statusLogRepo := repository.NewStatusLogRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	buildingRepo := repository.NewBuildingRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	preferenceRepo := repository.NewPreferenceRepository(pool)
	deliveryLogRepo := repository.NewDeliveryLogRepository(pool)
	invitationRepo := repository.NewInvitationRepository(pool)

	dispatcher := events.NewAsyncDispatcher(cfg.Notification.QueueSize, logger)
	defer dispatcher.Close()

	router := notify.NewRouter(notify.RouterConfig{
		DispatchList:  cfg.Notification.DispatchList,
		EmergencyList: cfg.Notification.EmergencyList,
	}, &directoryAdapter{buildings: buildingRepo, users: userRepo}, preferenceRepo)
	sink := notify.NewLogSink(logger, cfg.Notification.EmailFrom)
	notifyDispatcher := notify.NewDispatcher(sink, deliveryLogRepo, metrics, logger)
	notifier := notify.NewNotifier(router, notifyDispatcher, logger)
	notifier.RegisterHandlers(dispatcher)

	publisher := realtime.NewPublisher(redis.Client, cfg.Notification.RealtimeChannel, logger)
	publisher.RegisterHandlers(dispatcher)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		StatusLogRepo: statusLogRepo,
		CommentRepo:   commentRepo,
		BuildingRepo:  buildingRepo,
		Dispatcher:    dispatcher,
	})
	invitationService := service.NewInvitationService(invitationRepo, buildingRepo, dispatcher)
	authService := service.NewAuthService(cfg.Auth, userRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Notifications:  handlers.NewNotificationsHandler(preferenceRepo, deliveryLogRepo, invitationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// directoryAdapter narrows the repositories to what the notification router
// needs.
type directoryAdapter struct {
	buildings repository.BuildingRepository
	users     repository.UserRepository
}

func (d *directoryAdapter) GetByID(ctx context.Context, buildingID string) (*domain.Building, error) {
	return d.buildings.GetByID(ctx, buildingID)
}

func (d *directoryAdapter) ListCompanyUsers(ctx context.Context, companyID string) ([]domain.User, error) {
	return d.users.ListByCompany(ctx, companyID)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
