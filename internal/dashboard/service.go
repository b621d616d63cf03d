package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SnapshotSource loads the full raw event collection.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]visitor.Event, error)
}

type Service struct {
	source       SnapshotSource
	aggregator   *Aggregator
	fetchTimeout time.Duration
	loads        singleflight.Group
	logger       *zap.Logger
}

func NewService(source SnapshotSource, aggregator *Aggregator, fetchTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		source:       source,
		aggregator:   aggregator,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// Dashboard validates the query first, then loads a fresh snapshot and
// aggregates it. Concurrent callers share one in-flight load.
func (s *Service) Dashboard(ctx context.Context, q Query) (*Result, error) {
	if _, err := s.aggregator.resolve(q, s.aggregator.now()); err != nil {
		return nil, err
	}

	events, err := s.snapshot(ctx)
	if err != nil {
		s.logger.Error("Failed to load visitor snapshot", zap.Error(err))
		return nil, err
	}

	return s.AggregateEvents(events, q)
}

// AggregateEvents runs the pipeline over a caller supplied snapshot.
func (s *Service) AggregateEvents(events []visitor.Event, q Query) (*Result, error) {
	start := time.Now()
	result, err := s.aggregator.Aggregate(events, q)
	if err != nil {
		s.logger.Warn("Rejected dashboard query",
			zap.String("range", string(q.Selector)),
			zap.String("start", q.Start),
			zap.String("end", q.End),
			zap.Error(err),
		)
		return nil, err
	}

	if result.Skipped > 0 {
		s.logger.Warn("Skipped visitor events with malformed timestamps",
			zap.Int("skipped", result.Skipped),
		)
	}
	s.logger.Info("Dashboard aggregated",
		zap.String("range", string(q.Selector)),
		zap.Int("events", len(events)),
		zap.Int("total", result.Summary.Total),
		zap.Int("unique_visitors", result.Summary.UniqueVisitors),
		zap.Int("days", len(result.Summary.PerDay)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (s *Service) snapshot(ctx context.Context) ([]visitor.Event, error) {
	ch := s.loads.DoChan("snapshot", func() (any, error) {
		// detached from any single caller so one cancellation does not fail the others
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.source.Snapshot(loadCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, res.Err)
		}
		return res.Val.([]visitor.Event), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, ctx.Err())
	}
}
