// Package alert provides alert generation, buffering, and fan-out
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type classifies an alert
type Type string

const (
	TypeHighCrowdDensity Type = "high_crowd_density"
	TypeBehaviorAnomaly  Type = "behavior_anomaly"
	TypeSafetyViolation  Type = "safety_violation"
	TypeCameraOffline    Type = "camera_offline"
)

// Alert is a single raised alert. Details holds only JSON-safe values;
// anything else is stringified at raise time.
type Alert struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      Type           `json:"type"`
	Details   map[string]any `json:"details"`
}

// Publisher receives every raised alert for fan-out to external
// subscribers. Publish failures are logged and swallowed.
type Publisher interface {
	Publish(subject string, data any) error
}

// Archiver persists raised alerts for later inspection. Archive failures
// are logged and swallowed, same as Publish.
type Archiver interface {
	ArchiveAlert(ctx context.Context, a Alert) error
}

// DefaultRecentCap is the default size of the recent-alerts ring buffer
const DefaultRecentCap = 10

// Dispatcher queues alerts for one-time consumption and keeps a capped
// ring of recent alerts for repeated inspection. One queue and one ring
// are shared across all alert types; concurrent producers are safe.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []Alert
	recent []Alert
	cap    int

	publisher Publisher
	archiver  Archiver
	logger    *slog.Logger
}

// DispatcherConfig configures a dispatcher
type DispatcherConfig struct {
	// RecentCap bounds the ring buffer (default 10)
	RecentCap int
	// Publisher is optional bus fan-out
	Publisher Publisher
	// Archiver is optional alert persistence
	Archiver Archiver
}

// NewDispatcher creates an alert dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.RecentCap < 1 {
		cfg.RecentCap = DefaultRecentCap
	}
	return &Dispatcher{
		cap:       cfg.RecentCap,
		publisher: cfg.Publisher,
		archiver:  cfg.Archiver,
		logger:    slog.Default().With("component", "alert_dispatcher"),
	}
}

// Raise sanitizes the details, timestamps the alert, enqueues it for
// one-time consumption, and appends it to the recent ring.
func (d *Dispatcher) Raise(alertType Type, details map[string]any) Alert {
	a := Alert{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Type:      alertType,
		Details:   sanitize(details),
	}

	d.mu.Lock()
	d.queue = append(d.queue, a)
	d.recent = append(d.recent, a)
	if len(d.recent) > d.cap {
		d.recent = d.recent[len(d.recent)-d.cap:]
	}
	d.mu.Unlock()

	if d.publisher != nil {
		if err := d.publisher.Publish("alerts."+string(alertType), a); err != nil {
			d.logger.Warn("Alert fan-out failed", "type", alertType, "error", err)
		}
	}
	if d.archiver != nil {
		if err := d.archiver.ArchiveAlert(context.Background(), a); err != nil {
			d.logger.Warn("Alert archive failed", "type", alertType, "error", err)
		}
	}

	d.logger.Info("Alert raised", "type", alertType, "id", a.ID)
	return a
}

// Recent returns a snapshot copy of the ring buffer, oldest first
func (d *Dispatcher) Recent() []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Alert, len(d.recent))
	copy(out, d.recent)
	return out
}

// Drain empties the one-time queue and returns whatever was present.
// Never blocks waiting for more alerts.
func (d *Dispatcher) Drain() []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.queue
	d.queue = nil
	if out == nil {
		out = []Alert{}
	}
	return out
}

// QueueLen returns the number of undrained alerts
func (d *Dispatcher) QueueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// sanitize coerces details to JSON-safe values. Values that do not
// marshal cleanly are replaced with their string representation, a
// deliberate lossy fallback so an alert is never dropped over a payload.
func sanitize(details map[string]any) map[string]any {
	out := make(map[string]any, len(details))
	for key, value := range details {
		switch value.(type) {
		case nil, bool, string,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[key] = value
		default:
			if _, err := json.Marshal(value); err != nil {
				out[key] = fmt.Sprint(value)
			} else {
				out[key] = value
			}
		}
	}
	return out
}
