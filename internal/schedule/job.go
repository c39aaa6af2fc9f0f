package schedule

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/pulseboard/pulseboard/internal/models"
)

// Job is the in-memory, timer-bound projection of an active schedule.
// Jobs are rebuilt from Schedule rows at process start and whenever a
// schedule is created, updated or toggled.
type Job struct {
	ID          uint
	DashboardID uint
	OwnerID     uint
	Name        string
	CronExpr    string
	Recipients  []string
	Formats     []models.ReportFormat
}

func JobFromSchedule(s *models.Schedule) *Job {
	return &Job{
		ID:          s.ID,
		DashboardID: s.DashboardID,
		OwnerID:     s.OwnerID,
		Name:        s.Name,
		CronExpr:    s.CronExpr,
		Recipients:  s.Recipients,
		Formats:     s.Formats,
	}
}

// cronParser accepts standard 5-field expressions plus an optional
// leading seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ParseCron validates a CRON expression: 5 or 6 whitespace-separated
// fields, each accepted by the cron grammar.
func ParseCron(expr string) (cron.Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) < 5 || len(fields) > 6 {
		return nil, fmt.Errorf("%w: expected 5 or 6 fields, got %d", models.ErrInvalidCron, len(fields))
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidCron, err)
	}
	return sched, nil
}
