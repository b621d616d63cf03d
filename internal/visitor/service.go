package visitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Wuchinator/visitor-dashboard/pkg/kafka"
	"go.uber.org/zap"
)

type KafkaProducer interface {
	SendMessage(ctx context.Context, key string, value any) error
}

type Service struct {
	repo     Repository
	producer KafkaProducer
	dedup    *Deduplicator
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the collaborators a process needs; the collector passes
// only a producer, the ingest service only repo and dedup, the dashboard
// only repo.
func NewService(repo Repository, producer KafkaProducer, dedup *Deduplicator, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		producer: producer,
		dedup:    dedup,
		logger:   logger,
		now:      time.Now,
	}
}

// Track validates a collected visit and publishes it for ingestion.
func (s *Service) Track(ctx context.Context, req TrackRequest, clientIP, userAgent string) (*Event, error) {
	if err := req.Validate(); err != nil {
		s.logger.Warn("Rejected visit", zap.Error(err))
		return nil, err
	}
	if s.producer == nil {
		return nil, fmt.Errorf("track visit: producer is not configured")
	}

	event := NewEvent(req, clientIP, userAgent, s.now())
	// События одной сессии идут в одну партицию
	if err := s.producer.SendMessage(ctx, event.PartitionKey(), event); err != nil {
		s.logger.Error("Failed to publish visit",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to publish visit: %w", err)
	}

	s.logger.Debug("Visit tracked",
		zap.String("event_id", event.EventID),
		zap.String("page_url", Value(event.PageURL)),
	)
	return event, nil
}

// BatchResult reports a TrackBatch run. Failed holds the positions of
// rejected or unpublished visits in the request.
type BatchResult struct {
	EventIDs []string `json:"eventIds"`
	Failed   []int    `json:"failed"`
}

// TrackBatch tracks each visit independently; one bad visit does not fail
// the batch.
func (s *Service) TrackBatch(ctx context.Context, reqs []TrackRequest, clientIP, userAgent string) (*BatchResult, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no visits provided", ErrInvalidRequest)
	}
	if len(reqs) > maxBatchSize {
		return nil, fmt.Errorf("%w: batch exceeds %d visits", ErrInvalidRequest, maxBatchSize)
	}

	s.logger.Info("Tracking visits", zap.Int("visits", len(reqs)))

	result := &BatchResult{
		EventIDs: make([]string, 0, len(reqs)),
		Failed:   make([]int, 0),
	}
	for i, req := range reqs {
		event, err := s.Track(ctx, req, clientIP, userAgent)
		if err != nil {
			result.Failed = append(result.Failed, i)
			continue
		}
		result.EventIDs = append(result.EventIDs, event.EventID)
	}

	if len(result.Failed) > 0 {
		s.logger.Warn("Some visits in batch failed",
			zap.Int("failed", len(result.Failed)),
			zap.Int("processed", len(result.EventIDs)),
		)
	}
	return result, nil
}

// Ingest persists one event exactly once per dedup window.
func (s *Service) Ingest(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid visitor event: %w", err)
	}

	if s.dedup != nil {
		seen, err := s.dedup.SeenBefore(ctx, event.EventID)
		if err != nil {
			// the unique constraint still protects the table
			s.logger.Warn("Dedup check failed", zap.String("event_id", event.EventID), zap.Error(err))
		} else if seen {
			s.logger.Debug("Visitor event already ingested", zap.String("event_id", event.EventID))
			return nil
		}
	}

	if err := s.repo.Create(ctx, event); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			return nil
		}
		if s.dedup != nil {
			if ferr := s.dedup.Forget(ctx, event.EventID); ferr != nil {
				s.logger.Warn("Failed to clear dedup mark", zap.String("event_id", event.EventID), zap.Error(ferr))
			}
		}
		return fmt.Errorf("failed to persist visitor event: %w", err)
	}

	s.logger.Info("Visitor event ingested",
		zap.Int64("id", event.ID),
		zap.String("event_id", event.EventID),
	)
	return nil
}

// MessageHandler adapts Ingest to the kafka consumer callback. Undecodable
// and invalid events are reported as poison; store failures are returned as
// is so the message gets redelivered.
func (s *Service) MessageHandler() kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		var event Event
		if err := json.Unmarshal(value, &event); err != nil {
			s.logger.Error("Failed to unmarshal visitor event",
				zap.Error(err),
				zap.ByteString("key", key),
			)
			return fmt.Errorf("%w: %w", kafka.ErrPoisonMessage, err)
		}

		err := s.Ingest(ctx, &event)
		if errors.Is(err, ErrInvalidEventID) || errors.Is(err, ErrInvalidTimestamp) {
			return fmt.Errorf("%w: %w", kafka.ErrPoisonMessage, err)
		}
		return err
	}
}

// Snapshot returns the full raw event collection.
func (s *Service) Snapshot(ctx context.Context) ([]Event, error) {
	events, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load visitor snapshot: %w", err)
	}
	return events, nil
}
