package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/access"
	"github.com/pulseboard/pulseboard/internal/auth"
	"github.com/pulseboard/pulseboard/internal/database"
	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/schedule"
	"github.com/pulseboard/pulseboard/internal/share"
)

var testSecret = []byte("test-secret")

type nopDispatcher struct{}

func (nopDispatcher) ExecuteJob(job *schedule.Job) {}

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)

	log := logrus.New()
	store := share.NewStore(db)
	shareService := share.NewService(db, store, log)
	guard := access.NewGuard(db, store)
	registry := schedule.NewRegistry(db, nopDispatcher{}, log)
	scheduleService := schedule.NewService(db, registry, nopDispatcher{}, log)

	return NewServer(db, guard, shareService, scheduleService, testSecret, log), db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role) (*models.User, string) {
	t.Helper()
	user := models.User{Name: email, Email: email, Role: role, ApiKey: uuid.NewString(), IsActive: true}
	require.NoError(t, user.SetPassword("secret-password"))
	require.NoError(t, db.Create(&user).Error)

	token, err := auth.GenerateToken(&user, testSecret)
	require.NoError(t, err)
	return &user, token
}

func doRequest(t *testing.T, server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestLoginAndAuthenticatedRequest(t *testing.T) {
	server, db := newTestServer(t)
	createUser(t, db, "ann@example.com", models.RoleAnalyst)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "ann@example.com", "password": "secret-password"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/dashboards", resp.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/dashboards", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server, db := newTestServer(t)
	createUser(t, db, "ann@example.com", models.RoleAnalyst)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "ann@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestViewerCannotCreateDashboard(t *testing.T) {
	server, db := newTestServer(t)
	_, token := createUser(t, db, "viewer@example.com", models.RoleViewer)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/dashboards", token,
		map[string]interface{}{"title": "Revenue"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardLifecycle(t *testing.T) {
	server, db := newTestServer(t)
	_, ownerToken := createUser(t, db, "owner@example.com", models.RoleAnalyst)
	_, otherToken := createUser(t, db, "other@example.com", models.RoleAnalyst)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/dashboards", ownerToken,
		map[string]interface{}{"title": "Revenue", "description": "Quarterly"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var dashboard models.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dashboard))

	path := fmt.Sprintf("/api/v1/dashboards/%d", dashboard.ID)

	// Private dashboard: no access for another user, 403 not 404.
	rec = doRequest(t, server, http.MethodGet, path, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown dashboard resolves to 404 before any permission check.
	rec = doRequest(t, server, http.MethodGet, "/api/v1/dashboards/999", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Only the owner (or a delegated admin share) may delete.
	rec = doRequest(t, server, http.MethodDelete, path, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, server, http.MethodDelete, path, ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShareEndpoint(t *testing.T) {
	server, db := newTestServer(t)
	_, ownerToken := createUser(t, db, "owner@example.com", models.RoleAnalyst)
	target, targetToken := createUser(t, db, "target@example.com", models.RoleViewer)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/dashboards", ownerToken,
		map[string]interface{}{"title": "Revenue"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var dashboard models.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dashboard))

	sharePath := fmt.Sprintf("/api/v1/dashboards/%d/share", dashboard.ID)

	// ADMIN is not grantable through the share API.
	rec = doRequest(t, server, http.MethodPost, sharePath, ownerToken,
		map[string]string{"email": "target@example.com", "permission": "ADMIN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server, http.MethodPost, sharePath, targetToken,
		map[string]string{"email": "owner@example.com", "permission": "VIEW"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, server, http.MethodPost, sharePath, ownerToken,
		map[string]string{"email": "target@example.com", "permission": "EDIT"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The grantee now sees the dashboard with EDIT permission.
	rec = doRequest(t, server, http.MethodGet, fmt.Sprintf("/api/v1/dashboards/%d", dashboard.ID), targetToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/shared-with-me", targetToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sharedToMe []share.SharedDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sharedToMe))
	require.Len(t, sharedToMe, 1)
	assert.Equal(t, dashboard.ID, sharedToMe[0].DashboardID)

	// Revoke and confirm the 404 for a second revoke.
	revokePath := fmt.Sprintf("/api/v1/dashboards/%d/share/%d", dashboard.ID, target.ID)
	rec = doRequest(t, server, http.MethodDelete, revokePath, ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, server, http.MethodDelete, revokePath, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleEndpoints(t *testing.T) {
	server, db := newTestServer(t)
	_, token := createUser(t, db, "owner@example.com", models.RoleAnalyst)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/dashboards", token,
		map[string]interface{}{"title": "Revenue"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var dashboard models.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dashboard))

	rec = doRequest(t, server, http.MethodPost, "/api/v1/schedules", token, map[string]interface{}{
		"dashboard_id": dashboard.ID,
		"name":         "Weekly revenue",
		"cron_expr":    "0 9 * * 1",
		"recipients":   []string{"a@x.com", "b@x.com"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.IsActive)

	// Invalid CRON is rejected synchronously with 400.
	rec = doRequest(t, server, http.MethodPost, "/api/v1/schedules", token, map[string]interface{}{
		"dashboard_id": dashboard.ID,
		"name":         "Broken",
		"cron_expr":    "0 9 *",
		"recipients":   []string{"a@x.com"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	togglePath := fmt.Sprintf("/api/v1/schedules/%d/toggle", created.ID)
	rec = doRequest(t, server, http.MethodPut, togglePath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled models.Schedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.False(t, toggled.IsActive)

	rec = doRequest(t, server, http.MethodGet, fmt.Sprintf("/api/v1/schedules/%d/executions", created.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodDelete, fmt.Sprintf("/api/v1/schedules/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodGet, fmt.Sprintf("/api/v1/schedules/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewerCanListButNotCreateSchedules(t *testing.T) {
	server, db := newTestServer(t)
	_, token := createUser(t, db, "viewer@example.com", models.RoleViewer)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/schedules", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/schedules", token, map[string]interface{}{
		"dashboard_id": 1,
		"name":         "x",
		"cron_expr":    "0 9 * * 1",
		"recipients":   []string{"a@x.com"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminUserEndpoints(t *testing.T) {
	server, db := newTestServer(t)
	_, adminToken := createUser(t, db, "admin@example.com", models.RoleAdmin)
	_, analystToken := createUser(t, db, "ann@example.com", models.RoleAnalyst)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/admin/users", analystToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/admin/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/admin/users", adminToken, map[string]interface{}{
		"name":     "New Analyst",
		"email":    "new@example.com",
		"password": "secret-password",
		"role":     "ANALYST",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}
