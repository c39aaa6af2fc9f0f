package access

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/models"
)

// ShareReader is the slice of the share store the guard needs.
type ShareReader interface {
	GetUserPermission(dashboardID, userID uint) (*models.Permission, error)
}

// Guard resolves a user's effective permission on a dashboard by
// composing ownership, explicit shares and the public flag, in that
// precedence order. Ownership must short-circuit before any share lookup
// so an owner is never downgraded by a stale share row; the public flag
// is the weakest signal and never overrides an explicit share.
type Guard struct {
	db     *gorm.DB
	shares ShareReader
}

func NewGuard(db *gorm.DB, shares ShareReader) *Guard {
	return &Guard{db: db, shares: shares}
}

// GetUserPermission returns the effective permission, or nil when the
// user has no access. A missing dashboard is signaled before any
// permission resolution.
func (g *Guard) GetUserPermission(dashboardID, userID uint) (*models.Permission, error) {
	var dashboard models.Dashboard
	if err := g.db.First(&dashboard, dashboardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDashboardNotFound
		}
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	if dashboard.OwnerID == userID {
		p := models.PermissionAdmin
		return &p, nil
	}

	shared, err := g.shares.GetUserPermission(dashboardID, userID)
	if err != nil {
		return nil, err
	}
	if shared != nil {
		return shared, nil
	}

	if dashboard.IsPublic {
		p := models.PermissionView
		return &p, nil
	}
	return nil, nil
}

// HasAccess reports whether the user has any permission on the dashboard.
func (g *Guard) HasAccess(dashboardID, userID uint) (bool, error) {
	p, err := g.GetUserPermission(dashboardID, userID)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// VerifyModifyPermission succeeds when the user holds EDIT or ADMIN.
func (g *Guard) VerifyModifyPermission(dashboardID, userID uint) error {
	p, err := g.GetUserPermission(dashboardID, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return models.ErrAccessDenied
	}
	if !p.AtLeast(models.PermissionEdit) {
		return models.ErrInsufficientPermissions
	}
	return nil
}

// VerifyDeletePermission succeeds only for the owner or for a non-owner
// holding a delegated ADMIN share.
func (g *Guard) VerifyDeletePermission(dashboardID, userID uint) error {
	p, err := g.GetUserPermission(dashboardID, userID)
	if err != nil {
		return err
	}
	if p == nil || *p != models.PermissionAdmin {
		return models.ErrOnlyOwnerCanDelete
	}
	return nil
}
