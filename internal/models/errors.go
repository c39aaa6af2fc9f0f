package models

import "errors"

// Domain errors shared across services. Handlers match these with errors.Is
// to pick the right HTTP status (validation 400, authorization 403,
// not-found 404).
var (
	ErrUnauthenticated         = errors.New("authentication required")
	ErrAccessDenied            = errors.New("access denied")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrNotOwner                = errors.New("only the owner may perform this operation")
	ErrOnlyOwnerCanDelete      = errors.New("only the owner can delete this dashboard")
	ErrSelfShare               = errors.New("cannot share a dashboard with yourself")
	ErrUserNotFound            = errors.New("user not found")
	ErrShareNotFound           = errors.New("share not found")
	ErrDashboardNotFound       = errors.New("dashboard not found")
	ErrScheduleNotFound        = errors.New("schedule not found")
	ErrInvalidCron             = errors.New("invalid cron expression")
	ErrInvalidEmail            = errors.New("invalid email address")
	ErrInvalidPermission       = errors.New("invalid permission value")
)
