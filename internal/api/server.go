package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/access"
	"github.com/pulseboard/pulseboard/internal/auth"
	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/rbac"
	"github.com/pulseboard/pulseboard/internal/schedule"
	"github.com/pulseboard/pulseboard/internal/share"
)

type Server struct {
	db        *gorm.DB
	guard     *access.Guard
	shares    *share.Service
	schedules *schedule.Service
	jwtSecret []byte
	log       *logrus.Logger
	router    *gin.Engine
}

func NewServer(db *gorm.DB, guard *access.Guard, shares *share.Service, schedules *schedule.Service, jwtSecret []byte, log *logrus.Logger) *Server {
	server := &Server{
		db:        db,
		guard:     guard,
		shares:    shares,
		schedules: schedules,
		jwtSecret: jwtSecret,
		log:       log,
		router:    gin.Default(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	// Public routes
	s.router.POST("/api/v1/auth/login", s.login)
	s.router.POST("/api/v1/auth/register", s.register)

	// Protected routes (require authentication)
	api := s.router.Group("/api/v1")
	api.Use(auth.Middleware(s.db, s.jwtSecret))

	// Dashboard endpoints
	api.GET("/dashboards", s.listDashboards)
	api.POST("/dashboards", auth.RequirePermission(rbac.ResourceDashboard, rbac.ActionCreate), s.createDashboard)
	api.GET("/dashboards/:id", s.getDashboard)
	api.PUT("/dashboards/:id", s.updateDashboard)
	api.DELETE("/dashboards/:id", s.deleteDashboard)

	// Widget endpoints
	api.POST("/dashboards/:id/widgets", auth.RequirePermission(rbac.ResourceWidget, rbac.ActionCreate), s.createWidget)
	api.PUT("/widgets/:id", s.updateWidget)
	api.DELETE("/widgets/:id", s.deleteWidget)

	// Sharing endpoints
	api.POST("/dashboards/:id/share", s.shareDashboard)
	api.DELETE("/dashboards/:id/share/:userId", s.unshareDashboard)
	api.GET("/dashboards/:id/shares", s.listSharedUsers)
	api.GET("/shared-with-me", s.listSharedToMe)

	// Schedule endpoints
	schedules := api.Group("/schedules")
	schedules.Use(auth.RequirePermission(rbac.ResourceSchedule, rbac.ActionRead))
	{
		schedules.GET("", s.listSchedules)
		schedules.POST("", auth.RequirePermission(rbac.ResourceSchedule, rbac.ActionCreate), s.createSchedule)
		schedules.GET("/:id", s.getSchedule)
		schedules.PUT("/:id", auth.RequirePermission(rbac.ResourceSchedule, rbac.ActionUpdate), s.updateSchedule)
		schedules.DELETE("/:id", auth.RequirePermission(rbac.ResourceSchedule, rbac.ActionDelete), s.deleteSchedule)
		schedules.PUT("/:id/toggle", auth.RequirePermission(rbac.ResourceSchedule, rbac.ActionUpdate), s.toggleSchedule)
		schedules.POST("/:id/run", auth.RequirePermission(rbac.ResourceReport, rbac.ActionCreate), s.runSchedule)
		schedules.GET("/:id/executions", s.listExecutions)
	}

	// User management endpoints
	admin := api.Group("/admin")
	admin.Use(auth.RequireRole(models.RoleAdmin))
	admin.GET("/users", s.listUsers)
	admin.POST("/users", s.createUser)
	admin.PUT("/users/:id", s.updateUser)
	admin.DELETE("/users/:id", s.deleteUser)
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// writeError maps domain errors onto HTTP statuses. Not-found is always
// distinguished from authorization failures so clients see 404 vs 403.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrDashboardNotFound),
		errors.Is(err, models.ErrScheduleNotFound),
		errors.Is(err, models.ErrShareNotFound),
		errors.Is(err, models.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAccessDenied),
		errors.Is(err, models.ErrInsufficientPermissions),
		errors.Is(err, models.ErrNotOwner),
		errors.Is(err, models.ErrOnlyOwnerCanDelete):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrSelfShare),
		errors.Is(err, models.ErrInvalidCron),
		errors.Is(err, models.ErrInvalidEmail),
		errors.Is(err, models.ErrInvalidPermission):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Role:     models.RoleViewer,
		ApiKey:   uuid.NewString(),
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "user is inactive"})
		return
	}

	token, err := auth.GenerateToken(&user, s.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
