package rbac

import (
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/models"
)

type Resource string

const (
	ResourceDashboard Resource = "dashboard"
	ResourceWidget    Resource = "widget"
	ResourceUser      Resource = "user"
	ResourceReport    Resource = "report"
	ResourceSchedule  Resource = "schedule"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// CheckPermission maps (role, resource, action) to allow/deny. It is pure
// and total: any combination yields a boolean, unknown resources and
// actions deny for every role except ADMIN, which is resource-agnostic.
func CheckPermission(role models.Role, resource Resource, action Action) bool {
	if role == models.RoleAdmin {
		return true
	}

	switch role {
	case models.RoleAnalyst:
		switch resource {
		case ResourceDashboard, ResourceWidget, ResourceReport, ResourceSchedule:
			return true
		case ResourceUser:
			return action == ActionRead
		}
		return false
	case models.RoleViewer:
		switch resource {
		case ResourceDashboard, ResourceWidget, ResourceReport, ResourceSchedule:
			return action == ActionRead
		case ResourceUser:
			return false
		}
		return false
	}
	return false
}

// Evaluator resolves a user's role and applies the permission table.
type Evaluator struct {
	db *gorm.DB
}

func NewEvaluator(db *gorm.DB) *Evaluator {
	return &Evaluator{db: db}
}

// CheckUser resolves userID to a stored user before evaluating. A lookup
// miss means no permission for any resource or action.
func (e *Evaluator) CheckUser(userID uint, resource Resource, action Action) bool {
	var user models.User
	if err := e.db.First(&user, userID).Error; err != nil {
		return false
	}
	if !user.IsActive {
		return false
	}
	return CheckPermission(user.Role, resource, action)
}
