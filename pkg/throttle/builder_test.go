package throttle

import (
	"errors"
	"testing"
	"time"
)

func TestBuilder_Valid(t *testing.T) {
	limiter, err := NewBuilder().
		WithRate(100, Second).
		WithRate(2000, Minute).
		WithRate(50000, Hour).
		WithTimeout(5 * time.Second).
		Build()
	if err != nil {
		t.Fatalf("Expected valid configuration to build, got %v", err)
	}

	if got := limiter.Rate(Second); got != 100 {
		t.Errorf("Expected second rate 100, got %d", got)
	}
	if got := limiter.Rate(Minute); got != 2000 {
		t.Errorf("Expected minute rate 2000, got %d", got)
	}
	if got := limiter.Rate(Hour); got != 50000 {
		t.Errorf("Expected hour rate 50000, got %d", got)
	}
}

func TestBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{"zero rate", NewBuilder().WithRate(0, Second)},
		{"negative rate", NewBuilder().WithRate(-5, Second)},
		{"unsupported window", NewBuilder().WithRate(10, Window(7))},
		{"zero timeout", NewBuilder().WithRate(10, Second).WithTimeout(0)},
		{"negative timeout", NewBuilder().WithRate(10, Second).WithTimeout(-time.Second)},
		{"missing second rate", NewBuilder().WithRate(100, Minute)},
		{"empty builder", NewBuilder()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestBuilder_FirstErrorWins(t *testing.T) {
	_, err := NewBuilder().
		WithRate(-1, Second).
		WithTimeout(-time.Second).
		Build()
	if err == nil {
		t.Fatal("Expected an error")
	}
	if got := err.Error(); got != "throttle: invalid configuration: rate must be positive, got -1" {
		t.Errorf("Expected the first configuration error to surface, got %q", got)
	}
}

func TestNew_ConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing second rate", Config{PerMinute: 100}},
		{"negative minute rate", Config{PerSecond: 10, PerMinute: -1}},
		{"negative hour rate", Config{PerSecond: 10, PerHour: -1}},
		{"negative timeout", Config{PerSecond: 10, Timeout: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := New(Config{PerSecond: 10}); err != nil {
		t.Errorf("Expected minimal config to build, got %v", err)
	}
}
