package rbac

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/database"
	"github.com/pulseboard/pulseboard/internal/models"
)

var allResources = []Resource{ResourceDashboard, ResourceWidget, ResourceUser, ResourceReport, ResourceSchedule}
var allActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	return db
}

func TestAdminAllowsEverything(t *testing.T) {
	for _, resource := range allResources {
		for _, action := range allActions {
			assert.True(t, CheckPermission(models.RoleAdmin, resource, action),
				"ADMIN should be allowed %s on %s", action, resource)
		}
	}

	// ADMIN is resource-agnostic, even for unrecognized combinations.
	assert.True(t, CheckPermission(models.RoleAdmin, Resource("billing"), Action("purge")))
}

func TestAnalystPermissions(t *testing.T) {
	for _, resource := range []Resource{ResourceDashboard, ResourceWidget, ResourceReport, ResourceSchedule} {
		for _, action := range allActions {
			assert.True(t, CheckPermission(models.RoleAnalyst, resource, action),
				"ANALYST should be allowed %s on %s", action, resource)
		}
	}

	for _, action := range allActions {
		want := action == ActionRead
		assert.Equal(t, want, CheckPermission(models.RoleAnalyst, ResourceUser, action),
			"ANALYST %s on user", action)
	}

	assert.False(t, CheckPermission(models.RoleAnalyst, Resource("billing"), ActionRead))
}

func TestViewerPermissions(t *testing.T) {
	for _, resource := range []Resource{ResourceDashboard, ResourceWidget, ResourceReport, ResourceSchedule} {
		for _, action := range allActions {
			want := action == ActionRead
			assert.Equal(t, want, CheckPermission(models.RoleViewer, resource, action),
				"VIEWER %s on %s", action, resource)
		}
	}

	// Viewers have no user access at all, including read.
	for _, action := range allActions {
		assert.False(t, CheckPermission(models.RoleViewer, ResourceUser, action))
	}

	assert.False(t, CheckPermission(models.RoleViewer, Resource("billing"), ActionRead))
}

func TestUnknownRoleDenied(t *testing.T) {
	for _, resource := range allResources {
		for _, action := range allActions {
			assert.False(t, CheckPermission(models.Role("SUPERUSER"), resource, action))
		}
	}
}

func TestCheckUserUnresolvableUser(t *testing.T) {
	db := newTestDB(t)
	evaluator := NewEvaluator(db)

	for _, resource := range allResources {
		for _, action := range allActions {
			assert.False(t, evaluator.CheckUser(999, resource, action),
				"unresolvable user should be denied %s on %s", action, resource)
		}
	}
}

func TestCheckUserResolvesRole(t *testing.T) {
	db := newTestDB(t)

	analyst := models.User{Name: "Ann", Email: "ann@example.com", Role: models.RoleAnalyst, ApiKey: uuid.NewString(), IsActive: true}
	require.NoError(t, analyst.SetPassword("secret-password"))
	require.NoError(t, db.Create(&analyst).Error)

	inactive := models.User{Name: "Gone", Email: "gone@example.com", Role: models.RoleAdmin, ApiKey: uuid.NewString(), IsActive: false}
	require.NoError(t, inactive.SetPassword("secret-password"))
	require.NoError(t, db.Create(&inactive).Error)
	require.NoError(t, db.Model(&inactive).Update("is_active", false).Error)

	evaluator := NewEvaluator(db)
	assert.True(t, evaluator.CheckUser(analyst.ID, ResourceDashboard, ActionUpdate))
	assert.False(t, evaluator.CheckUser(analyst.ID, ResourceUser, ActionDelete))
	assert.False(t, evaluator.CheckUser(inactive.ID, ResourceDashboard, ActionRead))
}
