package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bytelocker/bytelocker/internal/database"
)

// Service persists events. Record is fire-and-forget: persistence errors
// are logged, never propagated to the calling analyzer tick.
type Service struct {
	db     *database.DB
	logger *slog.Logger
}

// NewService creates a new event service
func NewService(db *database.DB) *Service {
	return &Service{
		db:     db,
		logger: slog.Default().With("component", "event_service"),
	}
}

// Record logs an event without surfacing persistence failures to the
// caller. The payload is marshalled to JSON; marshal failures fall back to
// the payload's string form.
func (s *Service) Record(ctx context.Context, cameraID string, eventType EventType, payload any, confidence float64) {
	details, err := json.Marshal(payload)
	if err != nil {
		details = []byte(fmt.Sprintf("%q", fmt.Sprint(payload)))
	}

	event := &Event{
		ID:         uuid.New().String(),
		CameraID:   cameraID,
		EventType:  eventType,
		Details:    details,
		Confidence: confidence,
		Timestamp:  time.Now(),
		CreatedAt:  time.Now(),
	}

	if err := s.create(ctx, event); err != nil {
		s.logger.Error("Failed to record event", "type", eventType, "camera", cameraID, "error", err)
	}
}

// Create persists an event, surfacing errors to the caller
func (s *Service) Create(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return s.create(ctx, event)
}

func (s *Service) create(ctx context.Context, event *Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, camera_id, event_type, details, confidence, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID, event.CameraID, string(event.EventType), string(event.Details),
		event.Confidence, event.Timestamp.Unix(), event.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Get retrieves an event by ID
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	event := &Event{}
	var timestamp, createdAt int64
	var details sql.NullString
	var confidence sql.NullFloat64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, camera_id, event_type, details, confidence, timestamp, created_at
		FROM events WHERE id = ?
	`, id).Scan(&event.ID, &event.CameraID, &event.EventType, &details, &confidence, &timestamp, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	if details.Valid {
		event.Details = json.RawMessage(details.String)
	}
	if confidence.Valid {
		event.Confidence = confidence.Float64
	}
	event.Timestamp = time.Unix(timestamp, 0)
	event.CreatedAt = time.Unix(createdAt, 0)
	return event, nil
}

// List retrieves events matching the given filters, newest first
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*Event, error) {
	var conds []string
	var args []any

	if opts.CameraID != "" {
		conds = append(conds, "camera_id = ?")
		args = append(args, opts.CameraID)
	}
	if opts.EventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, string(opts.EventType))
	}
	if !opts.StartTime.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, opts.StartTime.Unix())
	}
	if !opts.EndTime.IsZero() {
		conds = append(conds, "timestamp <= ?")
		args = append(args, opts.EndTime.Unix())
	}

	query := "SELECT id, camera_id, event_type, details, confidence, timestamp, created_at FROM events"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []*Event
	for rows.Next() {
		event := &Event{}
		var timestamp, createdAt int64
		var details sql.NullString
		var confidence sql.NullFloat64

		if err := rows.Scan(&event.ID, &event.CameraID, &event.EventType, &details, &confidence, &timestamp, &createdAt); err != nil {
			return nil, err
		}
		if details.Valid {
			event.Details = json.RawMessage(details.String)
		}
		if confidence.Valid {
			event.Confidence = confidence.Float64
		}
		event.Timestamp = time.Unix(timestamp, 0)
		event.CreatedAt = time.Unix(createdAt, 0)
		result = append(result, event)
	}

	return result, rows.Err()
}

// Count returns the number of events matching the filters
func (s *Service) Count(ctx context.Context, opts ListOptions) (int, error) {
	var conds []string
	var args []any

	if opts.CameraID != "" {
		conds = append(conds, "camera_id = ?")
		args = append(args, opts.CameraID)
	}
	if opts.EventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, string(opts.EventType))
	}

	query := "SELECT COUNT(*) FROM events"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
