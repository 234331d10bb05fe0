package throttle

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_AcquireOutcomes(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	limiter := mustBuild(t, NewBuilder().
		WithRate(1, Second).
		WithName("api").
		WithMetrics(metrics))
	ctx := context.Background()

	if err := limiter.AcquireFor(ctx, 0); err != nil {
		t.Fatalf("Expected first acquire to succeed, got %v", err)
	}
	if err := limiter.AcquireFor(ctx, 0); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected second acquire to time out, got %v", err)
	}

	admitted := testutil.ToFloat64(metrics.acquireOutcomes.WithLabelValues("api", "admitted"))
	if admitted != 1 {
		t.Errorf("Expected 1 admitted outcome, got %v", admitted)
	}
	timedOut := testutil.ToFloat64(metrics.acquireOutcomes.WithLabelValues("api", "timeout"))
	if timedOut != 1 {
		t.Errorf("Expected 1 timeout outcome, got %v", timedOut)
	}

	depth := testutil.ToFloat64(metrics.queueDepth.WithLabelValues("api"))
	if depth != 0 {
		t.Errorf("Expected queue depth 0 after both calls returned, got %v", depth)
	}
}

func TestMetrics_SharedAcrossLimiters(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	first := mustBuild(t, NewBuilder().WithRate(1, Second).WithName("first").WithMetrics(metrics))
	second := mustBuild(t, NewBuilder().WithRate(1, Second).WithName("second").WithMetrics(metrics))
	ctx := context.Background()

	if err := first.AcquireFor(ctx, 0); err != nil {
		t.Fatalf("Expected acquire on first limiter to succeed, got %v", err)
	}
	if err := second.AcquireFor(ctx, 0); err != nil {
		t.Fatalf("Expected acquire on second limiter to succeed, got %v", err)
	}

	for _, name := range []string{"first", "second"} {
		if got := testutil.ToFloat64(metrics.acquireOutcomes.WithLabelValues(name, "admitted")); got != 1 {
			t.Errorf("Expected 1 admitted outcome for %q, got %v", name, got)
		}
	}
}
