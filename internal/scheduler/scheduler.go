package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Sweep removes stale state and returns how many entries it dropped
type Sweep func() int

// Scheduler runs periodic housekeeping such as evicting idle deck views
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       logrus.FieldLogger
}

// New creates a new scheduler instance
func New(logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{scheduler: s, log: logger}
}

// Every registers sweep to run at the given interval under name
func (s *Scheduler) Every(interval time.Duration, name string, sweep Sweep) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval for %s: %s", name, interval)
	}
	_, err := s.scheduler.Every(interval).Tag(name).Do(func() {
		if removed := sweep(); removed > 0 {
			s.log.WithFields(logrus.Fields{"job": name, "removed": removed}).Info("housekeeping sweep")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return s.scheduler.Len()
}

// Start begins running all scheduled jobs without blocking
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled jobs
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
