package session

import (
	"github.com/roomscan/roomscan/pkg/geom"
	"github.com/roomscan/roomscan/server/detection"
)

// CanvasRoom is a detected room in image pixel space, as shown on the review
// canvas. Unlike the detector output it is mutable: the reviewer can drag it,
// rename it, or delete it. ID is carried through from the detection unchanged
// and joins the two representations.
type CanvasRoom struct {
	ID         string  `json:"id"`
	NameHint   string  `json:"name_hint,omitempty"`
	Confidence float64 `json:"confidence"`
	geom.Rect
	Selected bool `json:"selected"`
}

// ConfidenceTier buckets a confidence score for display. The thresholds are
// fixed, not configurable.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"   // >= 0.80
	TierMedium ConfidenceTier = "medium" // 0.60 - 0.79
	TierLow    ConfidenceTier = "low"    // < 0.60
)

func TierForConfidence(confidence float64) ConfidenceTier {
	if confidence >= 0.8 {
		return TierHigh
	}
	if confidence >= 0.6 {
		return TierMedium
	}
	return TierLow
}

// Color returns the display color of the tier
func (t ConfidenceTier) Color() string {
	switch t {
	case TierHigh:
		return "#10b981"
	case TierMedium:
		return "#f59e0b"
	}
	return "#ef4444"
}

func (r *CanvasRoom) Tier() ConfidenceTier {
	return TierForConfidence(r.Confidence)
}

// roomsToCanvas transforms a detection response into canvas rooms at the
// blueprint's natural pixel size
func roomsToCanvas(detected []detection.Room, imageWidth, imageHeight int) []*CanvasRoom {
	rooms := make([]*CanvasRoom, 0, len(detected))
	for _, d := range detected {
		rooms = append(rooms, &CanvasRoom{
			ID:         d.ID,
			NameHint:   d.NameHint,
			Confidence: d.Confidence,
			Rect:       d.BoundingBox.ToPixel(imageWidth, imageHeight),
		})
	}
	return rooms
}

// RoomPatch is a partial update to a canvas room. Nil fields are left alone.
// No clamping against the image extent is performed - rooms may be dragged
// outside the visible canvas.
type RoomPatch struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
	NameHint *string  `json:"name_hint"`
}

func (p *RoomPatch) apply(r *CanvasRoom) {
	if p.X != nil {
		r.X = *p.X
	}
	if p.Y != nil {
		r.Y = *p.Y
	}
	if p.Width != nil {
		r.Width = *p.Width
	}
	if p.Height != nil {
		r.Height = *p.Height
	}
	if p.NameHint != nil {
		r.NameHint = *p.NameHint
	}
}
