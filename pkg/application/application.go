package application

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/promptdesk/promptdesk/pkg/eventbus"
)

// Controller is the unit of HTTP registration. Key must be unique per
// registered controller; later registrations with the same key replace
// earlier ones.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

type ApplicationOptions struct {
	Pool     *pgxpool.Pool
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
}

type Application struct {
	pool        *pgxpool.Pool
	eventBus    eventbus.EventBus
	logger      *logrus.Logger
	controllers map[string]Controller
	middleware  []mux.MiddlewareFunc
}

func New(opts *ApplicationOptions) *Application {
	return &Application{
		pool:        opts.Pool,
		eventBus:    opts.EventBus,
		logger:      opts.Logger,
		controllers: map[string]Controller{},
	}
}

func (app *Application) Pool() *pgxpool.Pool {
	return app.pool
}

func (app *Application) EventPublisher() eventbus.EventBus {
	return app.eventBus
}

func (app *Application) Logger() *logrus.Logger {
	return app.logger
}

func (app *Application) RegisterControllers(controllers ...Controller) {
	for _, c := range controllers {
		app.controllers[c.Key()] = c
	}
}

func (app *Application) Controllers() []Controller {
	out := make([]Controller, 0, len(app.controllers))
	for _, c := range app.controllers {
		out = append(out, c)
	}
	return out
}

func (app *Application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	app.middleware = append(app.middleware, middleware...)
}

func (app *Application) Middleware() []mux.MiddlewareFunc {
	return app.middleware
}
