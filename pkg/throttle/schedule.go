package throttle

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Schedule applies rate profiles to a Limiter on a cron schedule, e.g.
// a higher cap during business hours and a lower one overnight.
//
// Common cron expressions:
//   - "0 9 * * 1-5"  - weekdays at 9 AM
//   - "0 18 * * *"   - daily at 6 PM
//
// Entries are validated when added; the schedule only ticks between Start
// and Stop.
type Schedule struct {
	limiter *Limiter
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
}

// NewSchedule creates a schedule driving the given limiter.
func NewSchedule(limiter *Limiter) *Schedule {
	return &Schedule{
		limiter: limiter,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "throttle.schedule"),
	}
}

// Add registers a rate override applied whenever the cron expression
// fires. The window must be Second, Minute, or Hour and the rate positive;
// unlike Limiter.AdjustRate, a zero rate is rejected for every window.
func (s *Schedule) Add(spec string, rate int, w Window) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if !w.valid() {
		return errInvalid("unsupported window %d", int(w))
	}
	if rate <= 0 {
		return errInvalid("rate must be positive, got %d", rate)
	}

	_, err := s.cron.AddFunc(spec, func() {
		s.apply(rate, w)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule rate override: %w", err)
	}
	return nil
}

// Start begins applying scheduled overrides.
func (s *Schedule) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
}

// Stop halts the schedule. Overrides already applied stay in effect.
func (s *Schedule) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
}

// apply adjusts the limiter and logs the outcome.
func (s *Schedule) apply(rate int, w Window) {
	if err := s.limiter.AdjustRate(rate, w); err != nil {
		s.logger.Error("scheduled rate override rejected",
			"rate", rate,
			"window", w.String(),
			"error", err,
		)
		return
	}
	s.logger.Info("scheduled rate override applied",
		"rate", rate,
		"window", w.String(),
	)
}
