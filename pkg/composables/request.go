package composables

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
	"github.com/promptdesk/promptdesk/pkg/constants"
)

var (
	ErrNoLogger = errors.New("logger not found")
	// ErrNoUser indicates the request carries no authenticated identity.
	ErrNoUser = errors.New("no user found in context")
	// ErrForbidden indicates the caller lacks the privileged role.
	ErrForbidden = errors.New("forbidden")
)

// WithUser returns a new context carrying the authenticated user.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, constants.UserKey, u)
}

// UseUser returns the authenticated user from the context.
func UseUser(ctx context.Context) (*user.User, error) {
	u, ok := ctx.Value(constants.UserKey).(*user.User)
	if !ok || u == nil {
		return nil, ErrNoUser
	}
	return u, nil
}

// CanReview returns ErrForbidden unless the context user holds the
// privileged role.
func CanReview(ctx context.Context) error {
	u, err := UseUser(ctx)
	if err != nil {
		return err
	}
	if !u.CanReview() {
		return ErrForbidden
	}
	return nil
}

// WithLogger returns a new context carrying the request-scoped log entry.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context. Panics when absent: every
// request passes through the logging middleware before reaching handlers.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(constants.LoggerKey)
	if logger == nil {
		panic("logger not found")
	}
	return logger.(*logrus.Entry)
}
