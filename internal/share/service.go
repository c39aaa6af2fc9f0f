package share

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/models"
)

// Service layers the sharing business rules on top of the raw store:
// only the owner may share or revoke, self-shares are rejected, and the
// target user is resolved by email.
type Service struct {
	db    *gorm.DB
	store *Store
	log   *logrus.Logger
}

func NewService(db *gorm.DB, store *Store, log *logrus.Logger) *Service {
	return &Service{db: db, store: store, log: log}
}

func (s *Service) findDashboard(dashboardID uint) (*models.Dashboard, error) {
	var d models.Dashboard
	if err := s.db.First(&d, dashboardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDashboardNotFound
		}
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return &d, nil
}

// ShareByEmail grants the user identified by email access to the
// dashboard at the given permission level. Re-sharing updates the level.
func (s *Service) ShareByEmail(dashboardID, actorID uint, email string, permission models.Permission) (*SharedUser, error) {
	if !models.ValidSharePermission(permission) {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidPermission, permission)
	}

	dashboard, err := s.findDashboard(dashboardID)
	if err != nil {
		return nil, err
	}
	if dashboard.OwnerID != actorID {
		return nil, models.ErrNotOwner
	}

	var target models.User
	if err := s.db.Where("email = ?", email).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if target.ID == actorID {
		return nil, models.ErrSelfShare
	}

	if err := s.store.Share(dashboardID, target.ID, permission); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"dashboard_id": dashboardID,
		"user_id":      target.ID,
		"permission":   permission,
	}).Info("dashboard shared")

	return &SharedUser{
		UserID:     target.ID,
		Name:       target.Name,
		Email:      target.Email,
		Permission: permission,
	}, nil
}

// Revoke removes a user's share. Only the owner may revoke.
func (s *Service) Revoke(dashboardID, actorID, targetUserID uint) error {
	dashboard, err := s.findDashboard(dashboardID)
	if err != nil {
		return err
	}
	if dashboard.OwnerID != actorID {
		return models.ErrNotOwner
	}
	return s.store.Unshare(dashboardID, targetUserID)
}

// SharedUsers lists who the dashboard has been shared with.
func (s *Service) SharedUsers(dashboardID, actorID uint) ([]SharedUser, error) {
	dashboard, err := s.findDashboard(dashboardID)
	if err != nil {
		return nil, err
	}
	if dashboard.OwnerID != actorID {
		return nil, models.ErrNotOwner
	}
	return s.store.GetSharedUsers(dashboardID)
}

// SharedToMe lists dashboards shared to the user.
func (s *Service) SharedToMe(userID uint) ([]SharedDashboard, error) {
	return s.store.GetSharedToMe(userID)
}
