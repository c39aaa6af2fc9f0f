package schedule

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/database"
	"github.com/pulseboard/pulseboard/internal/models"
)

type recordingDispatcher struct {
	count atomic.Int32
	last  atomic.Value
}

func (d *recordingDispatcher) ExecuteJob(job *Job) {
	d.count.Add(1)
	d.last.Store(job.Name)
}

type blockingDispatcher struct {
	count   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (d *blockingDispatcher) ExecuteJob(job *Job) {
	d.count.Add(1)
	d.started <- struct{}{}
	<-d.release
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	return db
}

func testJob(id uint, name, cronExpr string) *Job {
	return &Job{
		ID:          id,
		DashboardID: 1,
		OwnerID:     1,
		Name:        name,
		CronExpr:    cronExpr,
		Recipients:  []string{"a@example.com"},
		Formats:     []models.ReportFormat{models.FormatPDF},
	}
}

func TestAddJobRejectsShortCron(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	registry := NewRegistry(newTestDB(t), dispatcher, logrus.New())

	// 3 fields: logged and skipped, never thrown to the caller.
	registry.AddJob(testJob(1, "bad", "0 9 *"))
	assert.False(t, registry.Scheduled(1))

	registry.AddJob(testJob(2, "garbage", "not a cron at all ok"))
	assert.False(t, registry.Scheduled(2))

	registry.AddJob(testJob(3, "seven", "0 0 9 * * 1 2024"))
	assert.False(t, registry.Scheduled(3))
}

func TestAddJobAcceptsFiveAndSixFields(t *testing.T) {
	registry := NewRegistry(newTestDB(t), &recordingDispatcher{}, logrus.New())

	registry.AddJob(testJob(1, "weekly", "0 9 * * 1"))
	assert.True(t, registry.Scheduled(1))

	registry.AddJob(testJob(2, "with-seconds", "0 0 9 * * 1"))
	assert.True(t, registry.Scheduled(2))
}

func TestAddJobReplacesExisting(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	registry := NewRegistry(newTestDB(t), dispatcher, logrus.New())

	registry.AddJob(testJob(1, "old", "0 9 * * 1"))
	registry.AddJob(testJob(1, "new", "0 10 * * 2"))
	assert.True(t, registry.Scheduled(1))

	assert.True(t, registry.Fire(1))
	assert.Equal(t, int32(1), dispatcher.count.Load())
	assert.Equal(t, "new", dispatcher.last.Load())
}

func TestRemoveJob(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	registry := NewRegistry(newTestDB(t), dispatcher, logrus.New())

	// Removing an unknown job is a no-op.
	registry.RemoveJob(99)

	registry.AddJob(testJob(1, "weekly", "0 9 * * 1"))
	registry.RemoveJob(1)
	assert.False(t, registry.Scheduled(1))

	// A fire after removal finds the job gone and has no effect.
	assert.False(t, registry.Fire(1))
	assert.Equal(t, int32(0), dispatcher.count.Load())
}

func TestPauseAndResume(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	registry := NewRegistry(newTestDB(t), dispatcher, logrus.New())

	assert.False(t, registry.PauseJob(1))
	assert.False(t, registry.ResumeJob(1))

	registry.AddJob(testJob(1, "weekly", "0 9 * * 1"))
	assert.True(t, registry.PauseJob(1))

	// A paused job stays registered but does not dispatch.
	assert.True(t, registry.Scheduled(1))
	assert.True(t, registry.Fire(1))
	assert.Equal(t, int32(0), dispatcher.count.Load())

	assert.True(t, registry.ResumeJob(1))
	assert.True(t, registry.Fire(1))
	assert.Equal(t, int32(1), dispatcher.count.Load())
}

func TestOverlappingFireIsSkipped(t *testing.T) {
	dispatcher := &blockingDispatcher{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	registry := NewRegistry(newTestDB(t), dispatcher, logrus.New())
	registry.AddJob(testJob(1, "slow", "0 9 * * 1"))

	done := make(chan struct{})
	go func() {
		registry.Fire(1)
		close(done)
	}()
	<-dispatcher.started

	// A tick for the same schedule while the previous run is still
	// executing is skipped, not queued.
	assert.True(t, registry.Fire(1))
	assert.Equal(t, int32(1), dispatcher.count.Load())

	close(dispatcher.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first execution did not finish")
	}

	// After completion the schedule fires again.
	dispatcher.release = make(chan struct{})
	go func() { <-dispatcher.started; close(dispatcher.release) }()
	assert.True(t, registry.Fire(1))
	assert.Equal(t, int32(2), dispatcher.count.Load())
}

func TestStartLoadsActiveSchedules(t *testing.T) {
	db := newTestDB(t)
	dispatcher := &recordingDispatcher{}
	registry := NewRegistry(db, dispatcher, logrus.New())

	active := models.Schedule{OwnerID: 1, DashboardID: 1, Name: "active", CronExpr: "0 9 * * 1",
		Recipients: []string{"a@example.com"}, Formats: []models.ReportFormat{models.FormatPDF}, IsActive: true}
	require.NoError(t, db.Create(&active).Error)

	inactive := models.Schedule{OwnerID: 1, DashboardID: 1, Name: "inactive", CronExpr: "0 9 * * 1",
		Recipients: []string{"a@example.com"}, Formats: []models.ReportFormat{models.FormatPDF}, IsActive: false}
	require.NoError(t, db.Create(&inactive).Error)
	require.NoError(t, db.Model(&inactive).Update("is_active", false).Error)

	corrupt := models.Schedule{OwnerID: 1, DashboardID: 1, Name: "corrupt", CronExpr: "nonsense",
		Recipients: []string{"a@example.com"}, Formats: []models.ReportFormat{models.FormatPDF}, IsActive: true}
	require.NoError(t, db.Create(&corrupt).Error)

	// One corrupt expression must not fail the whole start sequence.
	require.NoError(t, registry.Start())
	defer registry.Stop()

	assert.True(t, registry.Scheduled(active.ID))
	assert.False(t, registry.Scheduled(inactive.ID))
	assert.False(t, registry.Scheduled(corrupt.ID))
}

func TestStartWithNoSchedules(t *testing.T) {
	registry := NewRegistry(newTestDB(t), &recordingDispatcher{}, logrus.New())
	require.NoError(t, registry.Start())
	registry.Stop()
}
