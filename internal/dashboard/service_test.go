package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
	"go.uber.org/zap"
)

type fakeSource struct {
	events  []visitor.Event
	err     error
	calls   atomic.Int32
	release chan struct{}
}

func (f *fakeSource) Snapshot(ctx context.Context) ([]visitor.Event, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func newTestService(source SnapshotSource) *Service {
	agg := NewAggregator(time.UTC, WithClock(fixedClock(refNow)))
	return NewService(source, agg, time.Second, zap.NewNop())
}

func TestServiceDashboard(t *testing.T) {
	source := &fakeSource{events: sampleSnapshot()}
	svc := newTestService(source)

	result, err := svc.Dashboard(context.Background(), Query{Selector: SelectorWeek})
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}

	if result.Summary.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Summary.Total)
	}
	if source.calls.Load() != 1 {
		t.Errorf("snapshot loads = %d, want 1", source.calls.Load())
	}
}

func TestServiceDashboardSourceFailure(t *testing.T) {
	svc := newTestService(&fakeSource{err: errors.New("connection refused")})

	_, err := svc.Dashboard(context.Background(), Query{Selector: SelectorToday})
	if !errors.Is(err, ErrSnapshotUnavailable) {
		t.Fatalf("err = %v, want ErrSnapshotUnavailable", err)
	}
}

func TestServiceDashboardInvalidQuerySkipsLoad(t *testing.T) {
	source := &fakeSource{events: sampleSnapshot()}
	svc := newTestService(source)

	_, err := svc.Dashboard(context.Background(), Query{Selector: SelectorCustom, End: "2024-01-01"})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	if source.calls.Load() != 0 {
		t.Errorf("snapshot loads = %d, want 0", source.calls.Load())
	}
}

func TestServiceDashboardSharesInFlightLoad(t *testing.T) {
	source := &fakeSource{events: sampleSnapshot(), release: make(chan struct{})}
	svc := newTestService(source)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Dashboard(context.Background(), Query{Selector: SelectorAll})
			errs <- err
		}()
	}

	// let every caller join the in-flight load before releasing it
	deadline := time.Now().Add(time.Second)
	for source.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Dashboard failed: %v", err)
		}
	}
	if got := source.calls.Load(); got < 1 || got > callers {
		t.Errorf("snapshot loads = %d", got)
	}
}

func TestServiceDashboardCallerCancelled(t *testing.T) {
	source := &fakeSource{release: make(chan struct{})}
	defer close(source.release)
	svc := newTestService(source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Dashboard(ctx, Query{Selector: SelectorWeek})
	if !errors.Is(err, ErrSnapshotUnavailable) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want ErrSnapshotUnavailable wrapping context.Canceled", err)
	}
}
