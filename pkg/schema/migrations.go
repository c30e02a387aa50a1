// Package schema applies goose SQL migrations at startup.
package schema

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

type gooseLogger struct {
	log *logrus.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Infof(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Fatalf(strings.TrimSpace(format), v...)
}

// RunMigrations applies every pending migration in dir against the pool's
// database.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, dir string, logger *logrus.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("closing migration connection")
		}
	}()

	goose.SetLogger(gooseLogger{log: logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "set migration dialect")
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
