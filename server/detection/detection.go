package detection

// detection is the client for the room detection backends. The backends are
// opaque HTTP services: a fast heuristic detector ("opencv") and a slower,
// more accurate neural detector ("yolo"). Each gets its own base endpoint
// and timeout budget, and they are never mixed within one call.

import (
	"time"

	"github.com/roomscan/roomscan/pkg/geom"
	"github.com/roomscan/roomscan/server/defs"
)

// Room is a single detection reported by a backend. Immutable once received.
type Room struct {
	ID string `json:"id"`
	// Bounding box in normalized coordinates [x_min, y_min, x_max, y_max] (0-1000 range)
	BoundingBox geom.Box `json:"bounding_box"`
	// Detection confidence score (0-1)
	Confidence float64 `json:"confidence"`
	// Optional room name hint from detection
	NameHint string `json:"name_hint,omitempty"`
}

// Response is the full payload of one detection run
type Response struct {
	Rooms            []Room  `json:"rooms"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
	ModelVersion     string  `json:"model_version"`
}

// Options are the optional detection parameters, forwarded verbatim to the
// backend as a JSON-encoded multipart field.
type Options struct {
	// Minimum confidence threshold (0-1)
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`
	// Enable preprocessing enhancements
	Enhance bool `json:"enhance,omitempty"`
}

// Profile is a named combination of base endpoint and timeout, selected by
// the chosen detection model
type Profile struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultProfiles returns the built-in timeout budgets. The yolo budget is
// larger to absorb cold-start and model-load latency on that service.
func DefaultProfiles(opencvURL, yoloURL string) map[defs.Model]Profile {
	return map[defs.Model]Profile{
		defs.ModelOpenCV: {BaseURL: opencvURL, Timeout: 30 * time.Second},
		defs.ModelYOLO:   {BaseURL: yoloURL, Timeout: 60 * time.Second},
	}
}
