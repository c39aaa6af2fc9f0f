package share

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/models"
)

// SharedUser is the projection returned when listing who a dashboard has
// been shared with.
type SharedUser struct {
	UserID     uint              `json:"user_id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Permission models.Permission `json:"permission"`
	SharedAt   time.Time         `json:"shared_at"`
}

// SharedDashboard is the projection returned when listing dashboards
// shared to a user.
type SharedDashboard struct {
	DashboardID uint              `json:"dashboard_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	OwnerID     uint              `json:"owner_id"`
	OwnerName   string            `json:"owner_name"`
	OwnerEmail  string            `json:"owner_email"`
	Permission  models.Permission `json:"permission"`
	SharedAt    time.Time         `json:"shared_at"`
}

// Store manages raw per-dashboard, per-user share rows. Ownership and
// public visibility are composed one layer up, in the access guard.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Share upserts the share row for (dashboardID, userID): created if
// absent, otherwise its permission is overwritten.
func (s *Store) Share(dashboardID, userID uint, permission models.Permission) error {
	var existing models.DashboardShare
	err := s.db.Where("dashboard_id = ? AND user_id = ?", dashboardID, userID).First(&existing).Error
	if err == nil {
		existing.Permission = permission
		return s.db.Save(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up share: %w", err)
	}
	return s.db.Create(&models.DashboardShare{
		DashboardID: dashboardID,
		UserID:      userID,
		Permission:  permission,
	}).Error
}

// Unshare deletes the share row for (dashboardID, userID). The delete is
// permanent so the unique (dashboard, user) index never blocks a
// re-grant.
func (s *Store) Unshare(dashboardID, userID uint) error {
	res := s.db.Unscoped().Where("dashboard_id = ? AND user_id = ?", dashboardID, userID).
		Delete(&models.DashboardShare{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrShareNotFound
	}
	return nil
}

// GetSharedUsers lists all shares for a dashboard, newest grant first.
func (s *Store) GetSharedUsers(dashboardID uint) ([]SharedUser, error) {
	var out []SharedUser
	err := s.db.Table("dashboard_shares").
		Select("dashboard_shares.user_id, users.name, users.email, dashboard_shares.permission, dashboard_shares.created_at AS shared_at").
		Joins("JOIN users ON users.id = dashboard_shares.user_id").
		Where("dashboard_shares.dashboard_id = ? AND dashboard_shares.deleted_at IS NULL", dashboardID).
		Order("dashboard_shares.created_at DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shared users: %w", err)
	}
	return out, nil
}

// GetSharedToMe lists all dashboards the user has been granted access to,
// with the owner projection and grant metadata.
func (s *Store) GetSharedToMe(userID uint) ([]SharedDashboard, error) {
	var out []SharedDashboard
	err := s.db.Table("dashboard_shares").
		Select("dashboards.id AS dashboard_id, dashboards.title, dashboards.description, "+
			"users.id AS owner_id, users.name AS owner_name, users.email AS owner_email, "+
			"dashboard_shares.permission, dashboard_shares.created_at AS shared_at").
		Joins("JOIN dashboards ON dashboards.id = dashboard_shares.dashboard_id").
		Joins("JOIN users ON users.id = dashboards.owner_id").
		Where("dashboard_shares.user_id = ? AND dashboard_shares.deleted_at IS NULL AND dashboards.deleted_at IS NULL", userID).
		Order("dashboard_shares.created_at DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shared dashboards: %w", err)
	}
	return out, nil
}

// HasAccess reports whether a share row exists for the exact pair.
func (s *Store) HasAccess(dashboardID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.DashboardShare{}).
		Where("dashboard_id = ? AND user_id = ?", dashboardID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserPermission returns the share's permission, or nil if no share
// row exists for the pair.
func (s *Store) GetUserPermission(dashboardID, userID uint) (*models.Permission, error) {
	var row models.DashboardShare
	err := s.db.Where("dashboard_id = ? AND user_id = ?", dashboardID, userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row.Permission, nil
}
