package video

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"time"
)

// HTTPDevice captures frames from an HTTP JPEG snapshot endpoint, the kind
// exposed by most IP cameras and stream gateways. Each Read fetches and
// decodes one snapshot.
type HTTPDevice struct {
	id         string
	url        string
	httpClient *http.Client
	interval   time.Duration
	lastRead   time.Time
}

// NewHTTPDevice creates a snapshot-polling capture device.
// interval paces successive reads to approximate the camera frame rate.
func NewHTTPDevice(id string, interval time.Duration) *HTTPDevice {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &HTTPDevice{
		id: id,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		interval: interval,
	}
}

// Open records the snapshot URL and probes it once
func (d *HTTPDevice) Open(source string) error {
	d.url = source

	resp, err := d.httpClient.Get(source)
	if err != nil {
		return fmt.Errorf("snapshot endpoint unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("snapshot endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Read fetches and decodes one snapshot, pacing requests to the
// configured interval
func (d *HTTPDevice) Read() (*Frame, error) {
	if wait := d.interval - time.Since(d.lastRead); wait > 0 {
		time.Sleep(wait)
	}
	d.lastRead = time.Now()

	resp, err := d.httpClient.Get(d.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame data: %w", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	return FromImage(d.id, img), nil
}

// Release closes idle connections
func (d *HTTPDevice) Release() error {
	d.httpClient.CloseIdleConnections()
	return nil
}
