package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/service"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubRefresher struct {
	calls atomic.Int32
	err   error
}

func (s *stubRefresher) RefreshAll(context.Context) (domain.RefreshResult, error) {
	s.calls.Add(1)
	return domain.RefreshResult{RunID: "run", Total: 3}, s.err
}

func TestNewRefreshJobRejectsBadSchedule(t *testing.T) {
	if _, err := NewRefreshJob(testTracer, zap.NewNop(), &stubRefresher{}, "every tuesday", false); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestNewRefreshJobAcceptsDescriptors(t *testing.T) {
	for _, spec := range []string{"@every 6h", "@daily", "0 */6 * * *"} {
		if _, err := NewRefreshJob(testTracer, zap.NewNop(), &stubRefresher{}, spec, false); err != nil {
			t.Fatalf("unexpected error for %q: %v", spec, err)
		}
	}
}

func TestRefreshJobRunsOnStart(t *testing.T) {
	t.Parallel()

	stub := &stubRefresher{}
	job, err := NewRefreshJob(testTracer, zap.NewNop(), stub, "@daily", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	eventually(t, func() bool { return stub.calls.Load() > 0 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestRefreshJobRunOnceSurvivesErrors(t *testing.T) {
	for _, err := range []error{errors.New("boom"), service.ErrRefreshInProgress, nil} {
		stub := &stubRefresher{err: err}
		job, jerr := NewRefreshJob(testTracer, zap.NewNop(), stub, "@daily", false)
		if jerr != nil {
			t.Fatalf("unexpected error: %v", jerr)
		}
		job.runOnce(context.Background())
		if stub.calls.Load() != 1 {
			t.Fatalf("expected one refresh for err=%v, got %d", err, stub.calls.Load())
		}
	}
}

func TestRefreshJobSkipsCancelledContext(t *testing.T) {
	stub := &stubRefresher{}
	job, err := NewRefreshJob(testTracer, zap.NewNop(), stub, "@daily", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job.runOnce(ctx)
	if stub.calls.Load() != 0 {
		t.Fatalf("expected no refresh after cancel, got %d", stub.calls.Load())
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
