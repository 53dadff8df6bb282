// Package events provides the persisted event log
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventPersonDetected  EventType = "person_detected"
	EventHighDensity     EventType = "high_crowd_density"
	EventBehaviorAnomaly EventType = "behavior_anomaly"
	EventSafetyViolation EventType = "safety_violation"
	EventCameraOffline   EventType = "camera_offline"
)

// Event represents a persisted record of a detection or flagged condition
type Event struct {
	ID         string          `json:"id"`
	CameraID   string          `json:"camera_id"`
	EventType  EventType       `json:"event_type"`
	Details    json.RawMessage `json:"details,omitempty"`
	Confidence float64         `json:"confidence"`
	Timestamp  time.Time       `json:"timestamp"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ListOptions represents filters for querying events
type ListOptions struct {
	CameraID  string    `json:"camera_id,omitempty"`
	EventType EventType `json:"event_type,omitempty"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}
