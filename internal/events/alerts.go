package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytelocker/bytelocker/internal/alert"
)

// StoredAlert is a persisted alert row
type StoredAlert struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ArchiveAlert persists a raised alert. Details were already sanitized to
// JSON-safe values by the dispatcher.
func (s *Service) ArchiveAlert(ctx context.Context, a alert.Alert) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal alert details: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, alert_type, details, timestamp)
		VALUES (?, ?, ?, ?)
	`, a.ID, string(a.Type), string(details), a.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// Alerts returns persisted alerts, newest first
func (s *Service) Alerts(ctx context.Context, limit int) ([]StoredAlert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alert_type, details, timestamp
		FROM alerts ORDER BY timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	result := []StoredAlert{}
	for rows.Next() {
		var a StoredAlert
		var details string
		var ts int64
		if err := rows.Scan(&a.ID, &a.Type, &details, &ts); err != nil {
			return nil, err
		}
		a.Details = json.RawMessage(details)
		a.Timestamp = time.Unix(ts, 0)
		result = append(result, a)
	}
	return result, rows.Err()
}
