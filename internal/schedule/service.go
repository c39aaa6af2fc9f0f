package schedule

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/models"
)

// Service owns schedule persistence and keeps the registry in sync with
// it: every create, update, delete and toggle re-synchronizes the
// registry as a side effect.
type Service struct {
	db         *gorm.DB
	registry   *Registry
	dispatcher Dispatcher
	log        *logrus.Logger
	now        func() time.Time
}

func NewService(db *gorm.DB, registry *Registry, dispatcher Dispatcher, log *logrus.Logger) *Service {
	return &Service{
		db:         db,
		registry:   registry,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

type CreateInput struct {
	DashboardID uint                  `json:"dashboard_id" binding:"required"`
	Name        string                `json:"name" binding:"required"`
	CronExpr    string                `json:"cron_expr" binding:"required"`
	Recipients  []string              `json:"recipients" binding:"required"`
	Formats     []models.ReportFormat `json:"formats"`
}

type UpdateInput struct {
	Name       *string                `json:"name"`
	CronExpr   *string                `json:"cron_expr"`
	Recipients *[]string              `json:"recipients"`
	Formats    *[]models.ReportFormat `json:"formats"`
	IsActive   *bool                  `json:"is_active"`
}

func validateRecipients(recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", models.ErrInvalidEmail)
	}
	for _, addr := range recipients {
		if _, err := mail.ParseAddress(addr); err != nil {
			return fmt.Errorf("%w: %s", models.ErrInvalidEmail, addr)
		}
	}
	return nil
}

func validateFormats(formats []models.ReportFormat) error {
	for _, f := range formats {
		if !models.ValidReportFormat(f) {
			return fmt.Errorf("unsupported report format: %s", f)
		}
	}
	return nil
}

// Create validates the input and persists a new active schedule. Nothing
// is stored if any validation fails.
func (s *Service) Create(ownerID uint, in CreateInput) (*models.Schedule, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("schedule name is required")
	}
	sched, err := ParseCron(in.CronExpr)
	if err != nil {
		return nil, err
	}
	if err := validateRecipients(in.Recipients); err != nil {
		return nil, err
	}
	formats := in.Formats
	if len(formats) == 0 {
		formats = []models.ReportFormat{models.FormatPDF}
	}
	if err := validateFormats(formats); err != nil {
		return nil, err
	}

	var dashboard models.Dashboard
	if err := s.db.First(&dashboard, in.DashboardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDashboardNotFound
		}
		return nil, err
	}

	schedule := models.Schedule{
		OwnerID:     ownerID,
		DashboardID: in.DashboardID,
		Name:        in.Name,
		CronExpr:    in.CronExpr,
		Recipients:  in.Recipients,
		Formats:     formats,
		IsActive:    true,
		NextRun:     sched.Next(s.now()),
	}
	if err := s.db.Create(&schedule).Error; err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	s.registry.AddJob(JobFromSchedule(&schedule))
	return &schedule, nil
}

func (s *Service) findOwned(id, actorID uint) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := s.db.First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrScheduleNotFound
		}
		return nil, err
	}
	if schedule.OwnerID != actorID {
		return nil, models.ErrNotOwner
	}
	return &schedule, nil
}

// Update applies a partial update. NextRun is recomputed only when the
// CRON expression changes.
func (s *Service) Update(id, actorID uint, in UpdateInput) (*models.Schedule, error) {
	schedule, err := s.findOwned(id, actorID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, fmt.Errorf("schedule name is required")
		}
		schedule.Name = *in.Name
	}
	if in.CronExpr != nil && *in.CronExpr != schedule.CronExpr {
		sched, err := ParseCron(*in.CronExpr)
		if err != nil {
			return nil, err
		}
		schedule.CronExpr = *in.CronExpr
		schedule.NextRun = sched.Next(s.now())
	}
	if in.Recipients != nil {
		if err := validateRecipients(*in.Recipients); err != nil {
			return nil, err
		}
		schedule.Recipients = *in.Recipients
	}
	if in.Formats != nil {
		if err := validateFormats(*in.Formats); err != nil {
			return nil, err
		}
		schedule.Formats = *in.Formats
	}
	if in.IsActive != nil {
		schedule.IsActive = *in.IsActive
	}

	if err := s.db.Save(schedule).Error; err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	if schedule.IsActive {
		s.registry.AddJob(JobFromSchedule(schedule))
	} else {
		s.registry.RemoveJob(schedule.ID)
	}
	return schedule, nil
}

// Delete removes the schedule and its registry entry.
func (s *Service) Delete(id, actorID uint) error {
	schedule, err := s.findOwned(id, actorID)
	if err != nil {
		return err
	}
	s.registry.RemoveJob(schedule.ID)
	return s.db.Delete(schedule).Error
}

// Toggle flips the active flag and synchronizes the registry: an
// activated schedule gets a live job, a deactivated one loses it.
func (s *Service) Toggle(id, actorID uint) (*models.Schedule, error) {
	schedule, err := s.findOwned(id, actorID)
	if err != nil {
		return nil, err
	}
	schedule.IsActive = !schedule.IsActive
	if err := s.db.Save(schedule).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle schedule: %w", err)
	}

	if schedule.IsActive {
		s.registry.AddJob(JobFromSchedule(schedule))
	} else {
		s.registry.RemoveJob(schedule.ID)
	}
	return schedule, nil
}

// RunNow executes the schedule immediately, outside its timer.
func (s *Service) RunNow(id, actorID uint) error {
	schedule, err := s.findOwned(id, actorID)
	if err != nil {
		return err
	}
	go s.dispatcher.ExecuteJob(JobFromSchedule(schedule))
	return nil
}

// Get returns a schedule owned by the actor.
func (s *Service) Get(id, actorID uint) (*models.Schedule, error) {
	return s.findOwned(id, actorID)
}

// List returns all schedules owned by the actor, newest first.
func (s *Service) List(actorID uint) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := s.db.Where("owner_id = ?", actorID).Order("created_at DESC").Find(&schedules).Error
	return schedules, err
}

// Executions returns the execution history for a schedule, newest first.
func (s *Service) Executions(id, actorID uint, limit int) ([]models.ReportExecution, error) {
	if _, err := s.findOwned(id, actorID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	var executions []models.ReportExecution
	err := s.db.Where("schedule_id = ?", id).Order("started_at DESC").Limit(limit).Find(&executions).Error
	return executions, err
}
