package session

import (
	"encoding/json"
	"time"

	"github.com/roomscan/roomscan/pkg/geom"
)

// Summary is the aggregate view of the current room set
type Summary struct {
	Count             int     `json:"count"`
	AverageConfidence float64 `json:"averageConfidence"`
}

func summarize(rooms []CanvasRoom) Summary {
	if len(rooms) == 0 {
		// Avoid 0/0 - an empty set has average confidence 0, not NaN
		return Summary{}
	}
	sum := 0.0
	for _, r := range rooms {
		sum += r.Confidence
	}
	return Summary{
		Count:             len(rooms),
		AverageConfidence: sum / float64(len(rooms)),
	}
}

// Summarize returns the aggregate stats for the current room set
func (s *Session) Summarize() Summary {
	s.lock.Lock()
	defer s.lock.Unlock()
	rooms := make([]CanvasRoom, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, *r)
	}
	return summarize(rooms)
}

type ExportRoom struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	Bounds     geom.Rect `json:"bounds"`
}

type ExportDocument struct {
	Blueprint    string       `json:"blueprint"`
	ModelVersion string       `json:"model_version,omitempty"`
	Rooms        []ExportRoom `json:"rooms"`
	Timestamp    string       `json:"timestamp"`
}

// Export serializes the current annotation set as an indented JSON document.
// Output is deterministic given identical room order, field values and
// timestamp.
func (s *Session) Export(now time.Time) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	doc := ExportDocument{
		Blueprint:    s.blueprintName,
		ModelVersion: s.modelVersion,
		Rooms:        make([]ExportRoom, 0, len(s.rooms)),
		Timestamp:    now.UTC().Format(time.RFC3339),
	}
	for _, r := range s.rooms {
		doc.Rooms = append(doc.Rooms, ExportRoom{
			ID:         r.ID,
			Name:       r.NameHint,
			Confidence: r.Confidence,
			Bounds:     r.Rect,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}
