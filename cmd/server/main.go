package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/changerequest"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/promptresource"
	"github.com/promptdesk/promptdesk/modules/prompts/domain/workspace"
	"github.com/promptdesk/promptdesk/modules/prompts/infrastructure/persistence"
	"github.com/promptdesk/promptdesk/modules/prompts/infrastructure/persistence/memory"
	"github.com/promptdesk/promptdesk/modules/prompts/presentation/controllers"
	"github.com/promptdesk/promptdesk/modules/prompts/services"
	"github.com/promptdesk/promptdesk/pkg/application"
	"github.com/promptdesk/promptdesk/pkg/composables"
	"github.com/promptdesk/promptdesk/pkg/configuration"
	"github.com/promptdesk/promptdesk/pkg/eventbus"
	"github.com/promptdesk/promptdesk/pkg/httpapi"
	"github.com/promptdesk/promptdesk/pkg/metrics"
	"github.com/promptdesk/promptdesk/pkg/middleware"
	"github.com/promptdesk/promptdesk/pkg/schema"
	"github.com/promptdesk/promptdesk/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()
	publisher := eventbus.NewEventPublisher(logger)
	subscribeEventLoggers(publisher, logger)

	var (
		pool      *pgxpool.Pool
		tx        services.Transactor
		users     user.Repository
		wsRepo    workspace.Repository
		resources promptresource.Repository
		requests  changerequest.Repository
	)

	bootstrapCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	if conf.StorageBackend == "memory" {
		logger.Warn("using in-memory storage; data will not survive restarts")
		tx = services.PassthroughTransactor{}
		users = memory.NewUserRepository()
		wsRepo = memory.NewWorkspaceRepository()
		resources = memory.NewPromptResourceRepository()
		requests = memory.NewChangeRequestRepository()
	} else {
		var err error
		pool, err = pgxpool.New(bootstrapCtx, conf.Database.ConnectionString())
		if err != nil {
			panic(err)
		}
		if err := schema.RunMigrations(bootstrapCtx, pool, conf.MigrationsDir, logger); err != nil {
			panic(err)
		}
		tx = persistence.NewPgTransactor()
		users = persistence.NewUserRepository()
		wsRepo = persistence.NewWorkspaceRepository()
		resources = persistence.NewPromptResourceRepository()
		requests = persistence.NewChangeRequestRepository()
		bootstrapCtx = composables.WithPool(bootstrapCtx, pool)
	}

	userService := services.NewUserService(users, tx, publisher)
	workspaceService := services.NewWorkspaceService(wsRepo, resources, tx)
	requestService := services.NewChangeRequestService(requests, resources, tx, publisher)
	promptService := services.NewPromptService(resources, wsRepo, requestService, tx)

	if err := workspaceService.EnsureShared(bootstrapCtx); err != nil {
		panic(err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: publisher,
		Logger:   logger,
	})
	if pool != nil {
		app.RegisterMiddleware(middleware.WithPool(pool))
	}
	app.RegisterMiddleware(
		middleware.RequestLogger(logger, conf.RequestIDHeader),
		middleware.ProvideUser(users, conf.IdentityHeader),
	)
	app.RegisterControllers(
		controllers.NewHealthController(pool),
		controllers.NewUsersController(userService),
		controllers.NewWorkspacesController(workspaceService, promptService),
		controllers.NewChangeRequestsController(requestService),
	)
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	srv := server.NewHTTPServer(
		app,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
		}),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
		}),
	)
	logger.Infof("listening on %s", conf.SocketAddress)
	if err := srv.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func subscribeEventLoggers(bus eventbus.EventBus, logger *logrus.Logger) {
	bus.Subscribe(func(event changerequest.CreatedEvent) {
		logger.WithFields(logrus.Fields{
			"request_id": event.Result.ID,
			"kind":       event.Result.Kind,
			"submitter":  event.Result.SubmittedBy,
		}).Info("change request submitted")
	})
	bus.Subscribe(func(event changerequest.ReviewedEvent) {
		logger.WithFields(logrus.Fields{
			"request_id": event.Result.ID,
			"status":     event.Result.Status,
		}).Info("change request reviewed")
	})
	bus.Subscribe(func(event changerequest.WithdrawnEvent) {
		logger.WithFields(logrus.Fields{
			"request_id": event.Result.ID,
		}).Info("change request withdrawn")
	})
	bus.Subscribe(func(event user.CreatedEvent) {
		logger.WithFields(logrus.Fields{
			"user_id": event.Result.ID,
			"role":    event.Result.Role,
		}).Info("user registered")
	})
	bus.Subscribe(func(event user.RoleChangedEvent) {
		logger.WithFields(logrus.Fields{
			"user_id":  event.Result.ID,
			"previous": event.PreviousRole,
			"role":     event.Result.Role,
		}).Info("user role changed")
	})
}
