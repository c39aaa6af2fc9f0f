package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/schedule"
)

// ArtifactRenderer generates a report artifact for a dashboard.
type ArtifactRenderer interface {
	RenderDashboard(dashboardID uint, format models.ReportFormat) (*Artifact, error)
}

// Transport delivers a report to one recipient.
type Transport interface {
	Send(to, subject, body string, attachments []*Artifact) error
}

// Notifier is told about failed executions. May be nil.
type Notifier interface {
	NotifyFailure(scheduleID uint, name, errMsg string) error
}

// Dispatcher executes report jobs: it renders the configured artifacts,
// fans delivery out to every recipient, records the execution and stamps
// the schedule's lastRun. It never returns an error to the registry; all
// failures are caught and logged so one failing schedule cannot take
// down other jobs.
type Dispatcher struct {
	db       *gorm.DB
	renderer ArtifactRenderer
	mail     Transport
	notifier Notifier
	log      *logrus.Logger
	now      func() time.Time
}

func NewDispatcher(db *gorm.DB, renderer ArtifactRenderer, mail Transport, notifier Notifier, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		db:       db,
		renderer: renderer,
		mail:     mail,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// ExecuteJob runs one firing of a schedule. A delivery failure for one
// recipient does not stop delivery attempts to the rest; a partial
// failure is still recorded with whatever subset succeeded.
func (d *Dispatcher) ExecuteJob(job *schedule.Job) {
	started := d.now()
	logger := d.log.WithFields(logrus.Fields{
		"schedule_id": job.ID,
		"name":        job.Name,
	})
	logger.Info("executing scheduled report")

	var (
		artifacts []*Artifact
		delivered int
		failed    int
		errParts  []string
	)

	for _, format := range job.Formats {
		artifact, err := d.renderer.RenderDashboard(job.DashboardID, format)
		if err != nil {
			logger.Errorf("failed to render %s report: %v", format, err)
			errParts = append(errParts, fmt.Sprintf("render %s: %v", format, err))
			continue
		}
		artifacts = append(artifacts, artifact)
	}

	if len(artifacts) > 0 {
		subject := fmt.Sprintf("Scheduled report: %s", job.Name)
		body := fmt.Sprintf("Your scheduled report %q is attached.\nGenerated at %s.",
			job.Name, started.Format(time.RFC1123))

		for _, recipient := range job.Recipients {
			if err := d.mail.Send(recipient, subject, body, artifacts); err != nil {
				logger.Errorf("failed to deliver report to %s: %v", recipient, err)
				errParts = append(errParts, fmt.Sprintf("deliver to %s: %v", recipient, err))
				failed++
				continue
			}
			delivered++
		}
	}

	status := models.ExecutionSuccess
	if len(artifacts) == 0 || delivered == 0 {
		status = models.ExecutionFailed
	}

	execution := models.ReportExecution{
		ScheduleID: job.ID,
		RunID:      uuid.NewString(),
		Status:     status,
		StartedAt:  started,
		DurationMs: d.now().Sub(started).Milliseconds(),
		Delivered:  delivered,
		Failed:     failed,
		Error:      strings.Join(errParts, "; "),
	}
	if err := d.db.Create(&execution).Error; err != nil {
		logger.Errorf("failed to record report execution: %v", err)
	}

	// lastRun marks the attempt, not only success; the execution row
	// carries the outcome.
	if err := d.db.Model(&models.Schedule{}).
		Where("id = ?", job.ID).
		Update("last_run", started).Error; err != nil {
		logger.Errorf("failed to update last run: %v", err)
	}

	if status == models.ExecutionFailed && d.notifier != nil {
		if err := d.notifier.NotifyFailure(job.ID, job.Name, execution.Error); err != nil {
			logger.Errorf("failed to send failure notification: %v", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"status":    status,
		"delivered": delivered,
		"failed":    failed,
	}).Info("report execution finished")
}
