package defs

import (
	"fmt"
)

// defs contains some definitions that are shared by all systems

// Model selects which detection backend profile we talk to
type Model string

const (
	ModelOpenCV Model = "opencv" // Fast heuristic backend (edge detection + contours)
	ModelYOLO   Model = "yolo"   // Slower neural backend (more accurate, cold-start latency)
)

var AllModels = []Model{ModelOpenCV, ModelYOLO}

func ParseModel(model string) (Model, error) {
	switch model {
	case "", "opencv":
		return ModelOpenCV, nil
	case "yolo":
		return ModelYOLO, nil
	}
	return "", fmt.Errorf("Unknown detection model '%v'. Valid values are 'opencv' and 'yolo'", model)
}

// Status is the processing state of a review session.
// Exactly one is active at a time - this is session-wide state, not per-room.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusUploading  Status = "uploading" // Only used on the direct-to-storage upload path
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)
