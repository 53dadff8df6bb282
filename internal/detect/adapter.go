package detect

import (
	"fmt"
	"log/slog"

	"github.com/bytelocker/bytelocker/internal/identity"
	"github.com/bytelocker/bytelocker/internal/video"
)

// Localizer is the external person/object localization model.
// Pure: it must not mutate the frame or keep state across calls.
type Localizer interface {
	Locate(frame *video.Frame) ([]RawObject, error)
}

// FaceMatcher computes a face embedding for a region of a frame
type FaceMatcher interface {
	Embed(frame *video.Frame, bbox BBox) ([]float64, error)
}

// Adapter invokes the external localizer and face matcher and merges their
// output into canonical detection records. Not safe for concurrent use;
// each camera pipeline owns its own adapter.
type Adapter struct {
	localizer     Localizer
	faces         FaceMatcher
	store         *identity.Store
	minConfidence float64
	logger        *slog.Logger
}

// AdapterConfig configures a detector adapter
type AdapterConfig struct {
	Localizer     Localizer
	FaceMatcher   FaceMatcher
	Store         *identity.Store
	MinConfidence float64
}

// NewAdapter creates a detector adapter from already-initialized model
// handles. Model loading happens at the call sites so tests can substitute
// fakes.
func NewAdapter(cfg AdapterConfig) *Adapter {
	return &Adapter{
		localizer:     cfg.Localizer,
		faces:         cfg.FaceMatcher,
		store:         cfg.Store,
		minConfidence: cfg.MinConfidence,
		logger:        slog.Default().With("component", "detector"),
	}
}

// Detect runs both external lookups on a frame and returns the merged
// detection list. Any model error aborts the whole call so a tick never
// sees partial detections.
func (a *Adapter) Detect(frame *video.Frame) ([]Detection, error) {
	objects, err := a.localizer.Locate(frame)
	if err != nil {
		return nil, fmt.Errorf("localizer failed: %w", err)
	}

	detections := make([]Detection, 0, len(objects))
	for _, obj := range objects {
		if obj.Confidence < a.minConfidence {
			continue
		}

		det := Detection{
			BBox:       obj.BBox,
			Confidence: obj.Confidence,
		}

		if obj.Class == ClassFace {
			name, err := a.identify(frame, obj.BBox)
			if err != nil {
				return nil, err
			}
			det.Identity = name
		}

		detections = append(detections, det)
	}

	a.logger.Debug("Frame processed", "camera", frame.SourceID, "detections", len(detections))
	return detections, nil
}

// identify matches a face region against the known-identity store
func (a *Adapter) identify(frame *video.Frame, bbox BBox) (string, error) {
	if a.faces == nil || a.store == nil {
		return UnknownIdentity, nil
	}

	embedding, err := a.faces.Embed(frame, bbox)
	if err != nil {
		return "", fmt.Errorf("face embedding failed: %w", err)
	}

	if name, ok := a.store.Match(embedding); ok {
		return name, nil
	}
	return UnknownIdentity, nil
}
