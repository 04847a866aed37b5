package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"homecore/internal/models"
	"homecore/internal/utils"
)

// Source lists the configured schedules
type Source interface {
	GetAllSchedules(ctx context.Context) ([]models.Schedule, error)
}

// Enqueuer hands a triggered command to the task queue
type Enqueuer interface {
	EnqueueCommand(ctx context.Context, cmd models.PendingCommand, scheduleID string) error
}

// Scheduler manages time-based command triggers
type Scheduler struct {
	cron      *cron.Cron
	source    Source
	enqueuer  Enqueuer
	jobMap    map[string]cron.EntryID // Maps schedule ID to cron entry ID
	jobMapMux sync.RWMutex            // Protects jobMap
	log       zerolog.Logger
}

// NewScheduler creates a scheduler
func NewScheduler(source Source, enqueuer Enqueuer) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		source:   source,
		enqueuer: enqueuer,
		jobMap:   make(map[string]cron.EntryID),
		log:      utils.Component("scheduler"),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("cron scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("cron scheduler stopped")
}

// LoadSchedules adds every enabled schedule from the source as a cron job
func (s *Scheduler) LoadSchedules(ctx context.Context) error {
	schedules, err := s.source.GetAllSchedules(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load schedules")
		return err
	}

	s.log.Info().Int("schedules", len(schedules)).Msg("loading schedules")
	for _, sch := range schedules {
		// failures are logged and skip only that schedule
		_ = s.AddOrUpdateSchedule(sch)
	}
	s.log.Info().Int("enabled", s.GetScheduledJobCount()).Msg("schedules loaded")
	return nil
}

// ReloadSchedules removes all scheduled jobs and loads them again
func (s *Scheduler) ReloadSchedules(ctx context.Context) error {
	s.jobMapMux.Lock()
	for _, entryID := range s.jobMap {
		s.cron.Remove(entryID)
	}
	s.jobMap = make(map[string]cron.EntryID)
	s.jobMapMux.Unlock()

	return s.LoadSchedules(ctx)
}

// RemoveSchedule removes a specific schedule by its ID
func (s *Scheduler) RemoveSchedule(scheduleID string) {
	s.jobMapMux.Lock()
	defer s.jobMapMux.Unlock()

	if entryID, exists := s.jobMap[scheduleID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobMap, scheduleID)
		s.log.Info().Str("schedule_id", scheduleID).Msg("schedule removed")
	}
}

// AddOrUpdateSchedule replaces the job of sch. Disabled schedules are only removed.
func (s *Scheduler) AddOrUpdateSchedule(sch models.Schedule) error {
	s.RemoveSchedule(sch.ID)

	if !sch.Enabled {
		s.log.Debug().Str("schedule_id", sch.ID).Msg("schedule disabled, not adding")
		return nil
	}
	if err := sch.Command.Validate(); err != nil {
		s.log.Error().Err(err).Str("schedule_id", sch.ID).Msg("schedule has an invalid command")
		return err
	}

	entryID, err := s.cron.AddFunc(sch.CronExpression, s.trigger(sch))
	if err != nil {
		s.log.Error().Err(err).Str("schedule_id", sch.ID).Str("cron", sch.CronExpression).Msg("invalid cron expression")
		return err
	}

	s.jobMapMux.Lock()
	s.jobMap[sch.ID] = entryID
	s.jobMapMux.Unlock()

	s.log.Info().Str("schedule_id", sch.ID).Str("cron", sch.CronExpression).Int("entry_id", int(entryID)).Msg("schedule added")
	return nil
}

func (s *Scheduler) trigger(sch models.Schedule) func() {
	return func() {
		s.log.Info().Str("schedule_id", sch.ID).Str("name", sch.Name).Msg("schedule triggered")
		if err := s.enqueuer.EnqueueCommand(context.Background(), sch.Command, sch.ID); err != nil {
			s.log.Error().Err(err).Str("schedule_id", sch.ID).Msg("failed to enqueue scheduled command")
		}
	}
}

// GetScheduledJobCount returns the number of currently scheduled jobs
func (s *Scheduler) GetScheduledJobCount() int {
	s.jobMapMux.RLock()
	defer s.jobMapMux.RUnlock()
	return len(s.jobMap)
}

// runNow fires the job of scheduleID immediately
func (s *Scheduler) runNow(scheduleID string) bool {
	s.jobMapMux.RLock()
	id, ok := s.jobMap[scheduleID]
	s.jobMapMux.RUnlock()
	if !ok {
		return false
	}
	s.cron.Entry(id).Job.Run()
	return true
}
