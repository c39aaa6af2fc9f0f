package schedule

import (
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/models"
)

// Dispatcher executes a report job. Implementations must not propagate
// errors; a failing job is logged and recorded, never thrown.
type Dispatcher interface {
	ExecuteJob(job *Job)
}

type entry struct {
	job     *Job
	entryID cron.EntryID
	paused  bool
	running bool
}

// Registry holds one live timer per active schedule. Its job map is the
// only shared mutable state in the scheduling subsystem; every mutation
// and every timer firing goes through the mutex, so a job firing while
// it is being removed either completes or finds the job gone, but never
// observes partial state.
type Registry struct {
	mu         sync.Mutex
	cron       *cron.Cron
	entries    map[uint]*entry
	dispatcher Dispatcher
	db         *gorm.DB
	log        *logrus.Logger
}

func NewRegistry(db *gorm.DB, dispatcher Dispatcher, log *logrus.Logger) *Registry {
	return &Registry{
		cron:       cron.New(),
		entries:    make(map[uint]*entry),
		dispatcher: dispatcher,
		db:         db,
		log:        log,
	}
}

// AddJob registers a job under its schedule ID, replacing any existing
// registration for the same ID. An invalid CRON expression is logged and
// the job is not registered; a bad schedule must not crash the registry
// or block other jobs.
func (r *Registry) AddJob(job *Job) {
	sched, err := ParseCron(job.CronExpr)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"schedule_id": job.ID,
			"cron":        job.CronExpr,
		}).Warnf("skipping schedule with invalid cron expression: %v", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[job.ID]; ok {
		r.cron.Remove(existing.entryID)
		delete(r.entries, job.ID)
	}

	e := &entry{job: job}
	id := job.ID
	e.entryID = r.cron.Schedule(sched, cron.FuncJob(func() {
		r.Fire(id)
	}))
	r.entries[job.ID] = e

	r.log.WithFields(logrus.Fields{
		"schedule_id": job.ID,
		"name":        job.Name,
		"cron":        job.CronExpr,
	}).Info("schedule registered")
}

// RemoveJob stops and discards the job's timer. No-op if absent.
func (r *Registry) RemoveJob(id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return
	}
	r.cron.Remove(e.entryID)
	delete(r.entries, id)
	r.log.WithField("schedule_id", id).Info("schedule removed")
}

// PauseJob stops the job's timer without discarding its registration.
func (r *Registry) PauseJob(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	if !e.paused {
		r.cron.Remove(e.entryID)
		e.paused = true
	}
	return true
}

// ResumeJob restarts a paused job's timer.
func (r *Registry) ResumeJob(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	if e.paused {
		sched, err := ParseCron(e.job.CronExpr)
		if err != nil {
			return false
		}
		jobID := id
		e.entryID = r.cron.Schedule(sched, cron.FuncJob(func() {
			r.Fire(jobID)
		}))
		e.paused = false
	}
	return true
}

// Fire dispatches one execution of the job, returning whether the job
// was registered. A tick that arrives while the previous run of the same
// schedule is still executing is skipped; different schedules run
// concurrently.
func (r *Registry) Fire(id uint) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if e.paused {
		r.mu.Unlock()
		return true
	}
	if e.running {
		r.mu.Unlock()
		r.log.WithField("schedule_id", id).Warn("previous execution still running, skipping tick")
		return true
	}
	e.running = true
	job := e.job
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if e, ok := r.entries[id]; ok {
			e.running = false
		}
		r.mu.Unlock()
	}()

	r.dispatcher.ExecuteJob(job)
	return true
}

// Scheduled reports whether a job is currently registered.
func (r *Registry) Scheduled(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Start loads every active schedule from storage, registers each and
// starts the timers. A schedule with a corrupt CRON expression is
// skipped and logged; it must not fail the whole start sequence.
func (r *Registry) Start() error {
	var schedules []models.Schedule
	if err := r.db.Where("is_active = ?", true).Find(&schedules).Error; err != nil {
		return err
	}
	for i := range schedules {
		r.AddJob(JobFromSchedule(&schedules[i]))
	}
	r.cron.Start()
	r.log.Infof("schedule registry started with %d active schedule(s)", len(schedules))
	return nil
}

// Stop halts all timers. In-flight executions run to completion.
func (r *Registry) Stop() {
	r.cron.Stop()
	r.log.Info("schedule registry stopped")
}
