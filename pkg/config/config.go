package config

import (
	"fmt"
	"time"

	"mercator-hq/throttle/pkg/throttle"
)

// Config is the file representation of a limiter configuration.
type Config struct {
	// Rates contains the per-window admission caps.
	Rates RatesConfig `yaml:"rates"`

	// Timeout is the default acquire deadline. Zero means no deadline.
	Timeout time.Duration `yaml:"timeout"`

	// Schedules contains cron-driven rate overrides.
	Schedules []ScheduleConfig `yaml:"schedules"`
}

// RatesConfig contains the per-window admission caps. Zero values leave a
// window unconstrained; per_second is required.
type RatesConfig struct {
	PerSecond int `yaml:"per_second"`
	PerMinute int `yaml:"per_minute"`
	PerHour   int `yaml:"per_hour"`
}

// ScheduleConfig is one cron-driven rate override.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression.
	Cron string `yaml:"cron"`

	// Rate is the cap applied when the expression fires.
	Rate int `yaml:"rate"`

	// Window names the window the rate applies to: "second", "minute",
	// or "hour".
	Window string `yaml:"window"`
}

// Build creates a Limiter from the configuration.
func (c *Config) Build() (*throttle.Limiter, error) {
	return throttle.New(c.limiterConfig())
}

// BuildSchedule creates the cron schedule for the configured overrides.
// The schedule is returned stopped; callers Start it.
func (c *Config) BuildSchedule(limiter *throttle.Limiter) (*throttle.Schedule, error) {
	schedule := throttle.NewSchedule(limiter)
	for _, entry := range c.Schedules {
		w, err := parseWindow(entry.Window)
		if err != nil {
			return nil, err
		}
		if err := schedule.Add(entry.Cron, entry.Rate, w); err != nil {
			return nil, err
		}
	}
	return schedule, nil
}

// Apply pushes the configured rates and timeout onto a live limiter. It is
// the reload half of hot-reloading: the limiter keeps serving while its
// caps change.
func (c *Config) Apply(limiter *throttle.Limiter) error {
	if err := limiter.AdjustRate(c.Rates.PerSecond, throttle.Second); err != nil {
		return err
	}
	if err := limiter.AdjustRate(c.Rates.PerMinute, throttle.Minute); err != nil {
		return err
	}
	if err := limiter.AdjustRate(c.Rates.PerHour, throttle.Hour); err != nil {
		return err
	}
	return limiter.AdjustTimeout(c.Timeout)
}

func (c *Config) limiterConfig() throttle.Config {
	return throttle.Config{
		PerSecond: c.Rates.PerSecond,
		PerMinute: c.Rates.PerMinute,
		PerHour:   c.Rates.PerHour,
		Timeout:   c.Timeout,
	}
}

// parseWindow maps a window name to its Window.
func parseWindow(name string) (throttle.Window, error) {
	switch name {
	case "second":
		return throttle.Second, nil
	case "minute":
		return throttle.Minute, nil
	case "hour":
		return throttle.Hour, nil
	default:
		return 0, fmt.Errorf("unknown window %q (want second, minute, or hour)", name)
	}
}
