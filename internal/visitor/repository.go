package visitor

import (
	"context"
	"fmt"
	"time"

	"github.com/Wuchinator/visitor-dashboard/pkg/postgres"
	"go.uber.org/zap"
)

type Repository interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, event *Event) error
	ListAll(ctx context.Context) ([]Event, error)
}

type repository struct {
	db     *postgres.DB
	logger *zap.Logger
}

func NewRepository(db *postgres.DB, logger *zap.Logger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

const schema = `
	CREATE TABLE IF NOT EXISTS visitor_events (
		id          BIGSERIAL PRIMARY KEY,
		event_id    UUID NOT NULL UNIQUE,
		visited_at  TIMESTAMPTZ NOT NULL,
		ip_address  TEXT,
		location    TEXT,
		country     TEXT,
		city        TEXT,
		region      TEXT,
		timezone    TEXT,
		user_agent  TEXT,
		page_url    TEXT,
		referrer    TEXT,
		session_id  TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_visitor_events_visited_at ON visitor_events (visited_at);
`

func (r *repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure visitor schema: %w", err)
	}
	return nil
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	visitedAt, _ := event.ParseTime(time.UTC)

	query := `
		INSERT INTO visitor_events (
			event_id, visited_at, ip_address, location, country, city, region,
			timezone, user_agent, page_url, referrer, session_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id
	`

	rows, err := r.db.QueryContext(ctx, query,
		event.EventID,
		visitedAt.UTC(),
		event.IPAddress,
		event.Location,
		event.Country,
		event.City,
		event.Region,
		event.Timezone,
		event.UserAgent,
		event.PageURL,
		event.Referrer,
		event.SessionID,
	)
	if err != nil {
		r.logger.Error("Failed to create visitor event", zap.Error(err))
		return fmt.Errorf("failed to create visitor event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to create visitor event: %w", err)
		}
		r.logger.Warn("Duplicate visitor event ignored", zap.String("event_id", event.EventID))
		return ErrDuplicateEvent
	}
	if err := rows.Scan(&event.ID); err != nil {
		return fmt.Errorf("failed to read visitor event id: %w", err)
	}

	r.logger.Debug("Visitor event created",
		zap.Int64("id", event.ID),
		zap.String("event_id", event.EventID),
		zap.String("page_url", Value(event.PageURL)),
	)

	return nil
}

// ListAll loads the whole event collection in one query.
func (r *repository) ListAll(ctx context.Context) ([]Event, error) {
	query := `
		SELECT
			id,
			event_id,
			to_char(visited_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.MS"Z"') AS timestamp,
			ip_address, location, country, city, region, timezone,
			user_agent, page_url, referrer, session_id
		FROM visitor_events
		ORDER BY id
	`

	var events []Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		r.logger.Error("Failed to list visitor events", zap.Error(err))
		return nil, fmt.Errorf("failed to list visitor events: %w", err)
	}

	return events, nil
}
