package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fxseries/internal/domain"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Task is the scheduled unit of work; execID correlates its log entries.
type Task func(ctx context.Context, execID string) error

type TimeOfDay struct {
	Hour   uint
	Minute uint
}

// Scheduler runs a task once a day at a wall-clock time. Missed runs are not caught up.
type Scheduler struct {
	task      Task
	timeOfDay TimeOfDay
	location  *time.Location
	logger    logrus.FieldLogger
	// -----
	mu    sync.Mutex
	sched gocron.Scheduler
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(s.location))
	if err != nil {
		return err
	}

	job := func(jobCtx context.Context) {
		s.run(jobCtx, uuid.NewString())
	}

	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(s.timeOfDay.Hour, s.timeOfDay.Minute, 0))),
		gocron.NewTask(job),
		gocron.WithName("update-dataset"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return err
	}

	s.mu.Lock()
	s.sched = scheduler
	s.mu.Unlock()
	scheduler.Start()

	s.logger.Infof("Scheduled daily run at %02d:%02d %s", s.timeOfDay.Hour, s.timeOfDay.Minute, s.location)

	// Stop scheduler when the provided context is canceled.
	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			s.logger.Errorf("Scheduler shutdown error: %v", sdErr)
		}
	}()
	return nil
}

// NextRun reports when the task fires next; false when the scheduler is not running.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return time.Time{}, false
	}
	jobs := s.sched.Jobs()
	if len(jobs) == 0 {
		return time.Time{}, false
	}
	next, err := jobs[0].NextRun()
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}

func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	if sched == nil {
		return nil
	}
	return sched.Shutdown()
}

// run executes the task once. Errors and panics end here: the next run is unaffected.
func (s *Scheduler) run(ctx context.Context, execID string) {
	log := s.logger.WithField("exec_id", execID)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("Scheduled task panicked")
		}
	}()

	if err := s.task(ctx, execID); err != nil {
		log.WithError(err).WithField("retryable", domain.IsRetryable(err)).Error("Scheduled task failed")
		return
	}
	log.Info("Scheduled task finished")
}

// NewScheduler defaults location to UTC when nil.
func NewScheduler(task Task, timeOfDay TimeOfDay, location *time.Location, logger logrus.FieldLogger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{task: task, timeOfDay: timeOfDay, location: location, logger: logger}
}
