package services

import "errors"

var (
	// ErrInvalidStatusTransition indicates the request is not in the status
	// the operation requires.
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	// ErrBaselineConflict indicates the target resource changed since the
	// request's baseline was captured.
	ErrBaselineConflict = errors.New("resource changed since request was submitted")
	// ErrDuplicatePendingRequest indicates the submitter already has a
	// pending request for the same resource kind.
	ErrDuplicatePendingRequest = errors.New("a pending request for this resource already exists")
	// ErrSelfReview indicates a reviewer attempted to decide their own
	// request.
	ErrSelfReview = errors.New("cannot review your own request")
	// ErrNotSubmitter indicates the caller does not own the request.
	ErrNotSubmitter = errors.New("only the submitter may modify the request")
	// ErrReviewerNotPrivileged indicates the caller lacks the privileged
	// role required to review.
	ErrReviewerNotPrivileged = errors.New("reviewer must hold the privileged role")
	// ErrOwnRoleChange indicates a user attempted to change their own role.
	ErrOwnRoleChange = errors.New("cannot change your own role")
	// ErrLastPrivilegedUser indicates demoting the user would leave no
	// privileged users.
	ErrLastPrivilegedUser = errors.New("cannot demote the last privileged user")
	// ErrNotWorkspaceOwner indicates the caller does not own the personal
	// workspace.
	ErrNotWorkspaceOwner = errors.New("only the workspace owner may write to it")
)
