package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pulseboard/pulseboard/internal/auth"
	"github.com/pulseboard/pulseboard/internal/models"
)

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) listDashboards(c *gin.Context) {
	userID := auth.CurrentUserID(c)

	var dashboards []models.Dashboard
	err := s.db.Where("owner_id = ? OR is_public = ?", userID, true).
		Order("created_at DESC").Find(&dashboards).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dashboards)
}

type dashboardRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

func (s *Server) createDashboard(c *gin.Context) {
	var req dashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dashboard := models.Dashboard{
		OwnerID:     auth.CurrentUserID(c),
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if err := s.db.Create(&dashboard).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dashboard)
}

func (s *Server) getDashboard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID := auth.CurrentUserID(c)

	hasAccess, err := s.guard.HasAccess(id, userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !hasAccess {
		c.JSON(http.StatusForbidden, gin.H{"error": models.ErrAccessDenied.Error()})
		return
	}

	var dashboard models.Dashboard
	if err := s.db.Preload("Widgets").First(&dashboard, id).Error; err != nil {
		s.writeError(c, models.ErrDashboardNotFound)
		return
	}

	permission, err := s.guard.GetUserPermission(id, userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dashboard": dashboard, "permission": permission})
}

func (s *Server) updateDashboard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.guard.VerifyModifyPermission(id, auth.CurrentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	var req dashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var dashboard models.Dashboard
	if err := s.db.First(&dashboard, id).Error; err != nil {
		s.writeError(c, models.ErrDashboardNotFound)
		return
	}

	dashboard.Title = req.Title
	dashboard.Description = req.Description
	dashboard.IsPublic = req.IsPublic
	if err := s.db.Save(&dashboard).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

func (s *Server) deleteDashboard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.guard.VerifyDeletePermission(id, auth.CurrentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.db.Delete(&models.Dashboard{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "dashboard deleted successfully"})
}

type widgetRequest struct {
	Type   models.WidgetType `json:"type" binding:"required"`
	Title  string            `json:"title" binding:"required"`
	Config string            `json:"config"`
	PosX   int               `json:"pos_x"`
	PosY   int               `json:"pos_y"`
	Width  int               `json:"width"`
	Height int               `json:"height"`
}

func (s *Server) createWidget(c *gin.Context) {
	dashboardID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.guard.VerifyModifyPermission(dashboardID, auth.CurrentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	var req widgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	widget := models.Widget{
		DashboardID: dashboardID,
		Type:        req.Type,
		Title:       req.Title,
		Config:      req.Config,
		PosX:        req.PosX,
		PosY:        req.PosY,
		Width:       req.Width,
		Height:      req.Height,
	}
	if err := s.db.Create(&widget).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, widget)
}

func (s *Server) updateWidget(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var widget models.Widget
	if err := s.db.First(&widget, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}

	if err := s.guard.VerifyModifyPermission(widget.DashboardID, auth.CurrentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	var req widgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	widget.Type = req.Type
	widget.Title = req.Title
	widget.Config = req.Config
	widget.PosX = req.PosX
	widget.PosY = req.PosY
	widget.Width = req.Width
	widget.Height = req.Height
	if err := s.db.Save(&widget).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, widget)
}

func (s *Server) deleteWidget(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var widget models.Widget
	if err := s.db.First(&widget, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}

	if err := s.guard.VerifyModifyPermission(widget.DashboardID, auth.CurrentUserID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	if err := s.db.Delete(&widget).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "widget deleted successfully"})
}

type shareRequest struct {
	Email      string            `json:"email" binding:"required"`
	Permission models.Permission `json:"permission" binding:"required"`
}

func (s *Server) shareDashboard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shared, err := s.shares.ShareByEmail(id, auth.CurrentUserID(c), req.Email, req.Permission)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, shared)
}

func (s *Server) unshareDashboard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseID(c, "userId")
	if !ok {
		return
	}

	if err := s.shares.Revoke(id, auth.CurrentUserID(c), targetID); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "share revoked successfully"})
}

func (s *Server) listSharedUsers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	users, err := s.shares.SharedUsers(id, auth.CurrentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (s *Server) listSharedToMe(c *gin.Context) {
	dashboards, err := s.shares.SharedToMe(auth.CurrentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboards)
}
