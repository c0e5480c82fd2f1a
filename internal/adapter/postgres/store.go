// Package postgres persists alerts and the notification audit trail.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/couchcryptid/coastal-threat-service/internal/notify"
)

// psql builds queries with Postgres dollar placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store writes alerts and dispatch records. Alert inserts are idempotent on
// the deterministic alert ID, so replayed assessments do not duplicate rows.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
    id                TEXT PRIMARY KEY,
    location          TEXT NOT NULL,
    state             TEXT NOT NULL,
    lat               DOUBLE PRECISION NOT NULL,
    lon               DOUBLE PRECISION NOT NULL,
    threat_type       TEXT NOT NULL,
    threat_level      TEXT NOT NULL,
    severity          DOUBLE PRECISION NOT NULL,
    confidence        DOUBLE PRECISION NOT NULL,
    response_priority TEXT NOT NULL,
    recommendations   TEXT[] NOT NULL DEFAULT '{}',
    estimated_impact  TEXT NOT NULL DEFAULT '',
    tide_level        DOUBLE PRECISION NOT NULL,
    wind_speed        DOUBLE PRECISION NOT NULL,
    pressure          DOUBLE PRECISION NOT NULL,
    pollution_index   DOUBLE PRECISION NOT NULL,
    observed_at       TIMESTAMPTZ NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_alerts_observed_at ON alerts (observed_at DESC);

CREATE TABLE IF NOT EXISTS notifications (
    id         BIGSERIAL PRIMARY KEY,
    alert_id   TEXT NOT NULL,
    channel    TEXT NOT NULL,
    outcome    TEXT NOT NULL,
    recipients INTEGER NOT NULL DEFAULT 0,
    detail     TEXT NOT NULL DEFAULT '',
    sent_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_alert_id ON notifications (alert_id);
`

// EnsureSchema creates the tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveAlert inserts the alert, ignoring duplicates of the same deterministic
// ID. Returns true when a new row was written.
func (s *Store) SaveAlert(ctx context.Context, alert domain.Alert) (bool, error) {
	query, args, err := insertAlert(alert).ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func insertAlert(alert domain.Alert) sq.InsertBuilder {
	return psql.Insert("alerts").
		Columns("id", "location", "state", "lat", "lon",
			"threat_type", "threat_level", "severity", "confidence",
			"response_priority", "recommendations", "estimated_impact",
			"tide_level", "wind_speed", "pressure", "pollution_index",
			"observed_at").
		Values(alert.ID, alert.Location.Name, alert.Location.State, alert.Location.Lat, alert.Location.Lon,
			alert.ThreatType, string(alert.Level), alert.Severity, alert.Confidence,
			alert.ResponsePriority, pq.StringArray(alert.Recommendations), alert.EstimatedImpact,
			alert.Snapshot.TideLevel, alert.Snapshot.WindSpeed, alert.Snapshot.Pressure, alert.Snapshot.PollutionIndex,
			alert.Timestamp).
		Suffix("ON CONFLICT (id) DO NOTHING")
}

// RecordDispatch implements notify.Recorder.
func (s *Store) RecordDispatch(ctx context.Context, rec notify.Record) error {
	query, args, err := psql.Insert("notifications").
		Columns("alert_id", "channel", "outcome", "recipients", "detail", "sent_at").
		Values(rec.AlertID, rec.Channel, rec.Outcome, rec.Recipients, rec.Detail, rec.SentAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// StoredAlert is one persisted alert row.
type StoredAlert struct {
	ID               string    `json:"id"`
	Location         string    `json:"location"`
	State            string    `json:"state"`
	ThreatType       string    `json:"threat_type"`
	ThreatLevel      string    `json:"threat_level"`
	Severity         float64   `json:"severity_score"`
	ResponsePriority string    `json:"response_priority"`
	Recommendations  []string  `json:"recommendations"`
	ObservedAt       time.Time `json:"observed_at"`
}

// RecentAlerts returns the newest alerts, most recent first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]StoredAlert, error) {
	query, args, err := psql.Select("id", "location", "state", "threat_type", "threat_level",
		"severity", "response_priority", "recommendations", "observed_at").
		From("alerts").
		OrderBy("observed_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []StoredAlert
	for rows.Next() {
		var a StoredAlert
		var recs pq.StringArray
		if err := rows.Scan(&a.ID, &a.Location, &a.State, &a.ThreatType, &a.ThreatLevel,
			&a.Severity, &a.ResponsePriority, &recs, &a.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Recommendations = recs
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
