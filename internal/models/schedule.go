package models

import (
	"time"

	"gorm.io/gorm"
)

type ReportFormat string

const (
	FormatPDF  ReportFormat = "PDF"
	FormatXLSX ReportFormat = "XLSX"
)

func ValidReportFormat(f ReportFormat) bool {
	return f == FormatPDF || f == FormatXLSX
}

// Schedule is a recurring report delivery for a dashboard. Schedules are
// owned exclusively by their creating user; there is no sharing concept.
type Schedule struct {
	gorm.Model
	OwnerID     uint           `gorm:"not null;index" json:"owner_id"`
	DashboardID uint           `gorm:"not null;index" json:"dashboard_id"`
	Name        string         `gorm:"not null" json:"name"`
	CronExpr    string         `gorm:"not null" json:"cron_expr"`
	Recipients  []string       `gorm:"serializer:json" json:"recipients"`
	Formats     []ReportFormat `gorm:"serializer:json" json:"formats"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	LastRun     *time.Time     `json:"last_run"`
	NextRun     time.Time      `json:"next_run"`
}

type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "SUCCESS"
	ExecutionFailed  ExecutionStatus = "FAILED"
)

// ReportExecution records one firing of a schedule, successful or not.
type ReportExecution struct {
	gorm.Model
	ScheduleID uint            `gorm:"not null;index" json:"schedule_id"`
	RunID      string          `gorm:"uniqueIndex" json:"run_id"`
	Status     ExecutionStatus `gorm:"not null" json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMs int64           `json:"duration_ms"`
	Delivered  int             `json:"delivered"`
	Failed     int             `json:"failed"`
	Error      string          `json:"error,omitempty"`
}
