package session

// A Session is one blueprint review: upload, detection, interactive
// annotation, export. The source UI ran this on a single thread; here every
// mutation is serialized by the session lock, and a generation counter
// guards against stale detection results being applied after the reviewer
// has already moved on (reprocess, or a new file while processing).

import (
	"context"
	"sync"

	"github.com/roomscan/roomscan/pkg/idgen"
	"github.com/roomscan/roomscan/pkg/logs"
	"github.com/roomscan/roomscan/server/defs"
	"github.com/roomscan/roomscan/server/detection"
	"github.com/roomscan/roomscan/server/imagex"
	"github.com/roomscan/roomscan/server/validate"
)

// Detector is the slice of the detection client that a session needs
type Detector interface {
	Detect(ctx context.Context, model defs.Model, filename string, file []byte, options *detection.Options) (*detection.Response, error)
}

// Archiver stores a copy of the accepted blueprint (direct-to-storage path).
// Archival failure does not fail the detection.
type Archiver func(name string, data []byte) error

// Event is pushed to watchers on every state transition
type Event struct {
	Status    defs.Status    `json:"status"`
	RoomCount int            `json:"roomCount"`
	Error     *defs.AppError `json:"error,omitempty"`
}

type Session struct {
	ID  string
	log logs.Log

	detector Detector

	lock             sync.Mutex
	status           defs.Status
	blueprintName    string
	blueprint        []byte
	imageWidth       int
	imageHeight      int
	rooms            []*CanvasRoom
	selected         string
	lastErr          *defs.AppError
	modelVersion     string
	processingTimeMS float64

	gen     idgen.Uint32
	current uint32 // generation of the request whose result we will accept
	cancel  context.CancelFunc

	watchers    map[int]chan Event
	nextWatcher int
}

func NewSession(id string, log logs.Log, detector Detector) *Session {
	return &Session{
		ID:       id,
		log:      log,
		detector: detector,
		status:   defs.StatusIdle,
		watchers: map[int]chan Event{},
	}
}

// StartDetection validates the file and, if it passes, kicks off a detection
// run against the chosen backend. The detection runs in the background; poll
// Snapshot or subscribe with Watch for the outcome.
// A validation failure is returned immediately (and mirrored into the error
// state) without ever entering 'processing'.
func (s *Session) StartDetection(name, mimeType string, data []byte, model defs.Model, options *detection.Options, archive Archiver) *defs.AppError {
	s.lock.Lock()
	defer s.lock.Unlock()

	if appErr := validate.BlueprintFile(name, int64(len(data)), mimeType); appErr != nil {
		s.rooms = nil
		s.selected = ""
		s.lastErr = appErr
		s.setStatusLocked(defs.StatusError)
		return appErr
	}

	info, err := imagex.Decode(data)
	if err != nil {
		// Extension and MIME type said image, the bytes disagree
		appErr := defs.NewError(defs.ErrorInvalidFormat, "Please upload a PNG, JPG, or TIFF file", err.Error())
		s.rooms = nil
		s.selected = ""
		s.lastErr = appErr
		s.setStatusLocked(defs.StatusError)
		return appErr
	}

	// Invalidate any outstanding request before starting a new one
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	gen := s.gen.Next()
	s.current = gen

	s.blueprintName = name
	s.blueprint = data
	s.imageWidth = info.Width
	s.imageHeight = info.Height
	s.rooms = nil
	s.selected = ""
	s.lastErr = nil
	s.modelVersion = ""
	s.processingTimeMS = 0

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if archive != nil {
		s.setStatusLocked(defs.StatusUploading)
	} else {
		s.setStatusLocked(defs.StatusProcessing)
	}

	go s.runDetection(ctx, gen, name, data, model, options, archive)
	return nil
}

func (s *Session) runDetection(ctx context.Context, gen uint32, name string, data []byte, model defs.Model, options *detection.Options, archive Archiver) {
	if archive != nil {
		if err := archive(name, data); err != nil {
			s.log.Warnf("Session %v: blueprint archival failed: %v", s.ID, err)
		}
		s.lock.Lock()
		if s.current == gen {
			s.setStatusLocked(defs.StatusProcessing)
		}
		s.lock.Unlock()
	}

	resp, err := s.detector.Detect(ctx, model, name, data, options)

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.current != gen {
		// The reviewer reprocessed or started a new detection while this one
		// was in flight. Drop the result silently.
		s.log.Infof("Session %v: discarding stale detection result (generation %v, current %v)", s.ID, gen, s.current)
		return
	}
	s.cancel = nil
	if err != nil {
		s.lastErr = asAppError(err)
		s.setStatusLocked(defs.StatusError)
		s.log.Infof("Session %v: detection failed: %v", s.ID, s.lastErr)
		return
	}
	s.rooms = roomsToCanvas(resp.Rooms, s.imageWidth, s.imageHeight)
	s.modelVersion = resp.ModelVersion
	s.processingTimeMS = resp.ProcessingTimeMS
	s.setStatusLocked(defs.StatusSuccess)
	s.log.Infof("Session %v: detected %v rooms in %.0fms (model %v)", s.ID, len(s.rooms), resp.ProcessingTimeMS, resp.ModelVersion)
}

// Reprocess clears all accumulated state and returns to idle. Any detection
// still in flight is invalidated; its late result will be dropped.
func (s *Session) Reprocess() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.current = s.gen.Next()
	s.blueprintName = ""
	s.blueprint = nil
	s.imageWidth = 0
	s.imageHeight = 0
	s.rooms = nil
	s.selected = ""
	s.lastErr = nil
	s.modelVersion = ""
	s.processingTimeMS = 0
	s.setStatusLocked(defs.StatusIdle)
}

// Select marks exactly one room as selected, clearing any previous selection.
// An unknown id is a no-op. An empty id clears the selection.
func (s *Session) Select(roomID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if roomID == "" {
		s.selected = ""
		return
	}
	if s.findRoomLocked(roomID) != nil {
		s.selected = roomID
	}
}

// UpdateRoom merges a partial update into the matching room. Unknown id is a
// no-op.
func (s *Session) UpdateRoom(roomID string, patch *RoomPatch) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if room := s.findRoomLocked(roomID); room != nil {
		patch.apply(room)
	}
}

// Drag moves a room by (dx, dy) pixels
func (s *Session) Drag(roomID string, dx, dy float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if room := s.findRoomLocked(roomID); room != nil {
		room.Offset(dx, dy)
	}
}

// DeleteRoom removes the room. If it was selected, the selection goes empty.
func (s *Session) DeleteRoom(roomID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for i, room := range s.rooms {
		if room.ID == roomID {
			s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
			if s.selected == roomID {
				s.selected = ""
			}
			return
		}
	}
}

func (s *Session) findRoomLocked(roomID string) *CanvasRoom {
	for _, room := range s.rooms {
		if room.ID == roomID {
			return room
		}
	}
	return nil
}

// Blueprint returns the raw uploaded image (for preview rendering)
func (s *Session) Blueprint() (name string, data []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.blueprintName, s.blueprint
}

func (s *Session) Status() defs.Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.status
}

// Snapshot is the full client-visible state of a session
type Snapshot struct {
	ID           string         `json:"id"`
	Status       defs.Status    `json:"status"`
	Blueprint    string         `json:"blueprint,omitempty"`
	ImageWidth   int            `json:"imageWidth,omitempty"`
	ImageHeight  int            `json:"imageHeight,omitempty"`
	Rooms        []CanvasRoom   `json:"rooms"`
	SelectedID   string         `json:"selectedID,omitempty"`
	Error        *defs.AppError `json:"error,omitempty"`
	ModelVersion string         `json:"modelVersion,omitempty"`
	Summary      Summary        `json:"summary"`
}

func (s *Session) Snapshot() Snapshot {
	s.lock.Lock()
	defer s.lock.Unlock()
	rooms := make([]CanvasRoom, 0, len(s.rooms))
	for _, room := range s.rooms {
		r := *room
		r.Selected = room.ID == s.selected
		rooms = append(rooms, r)
	}
	return Snapshot{
		ID:           s.ID,
		Status:       s.status,
		Blueprint:    s.blueprintName,
		ImageWidth:   s.imageWidth,
		ImageHeight:  s.imageHeight,
		Rooms:        rooms,
		SelectedID:   s.selected,
		Error:        s.lastErr,
		ModelVersion: s.modelVersion,
		Summary:      summarize(rooms),
	}
}

// Watch subscribes to state transitions. Call the returned function to
// unsubscribe.
func (s *Session) Watch() (<-chan Event, func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	id := s.nextWatcher
	s.nextWatcher++
	ch := make(chan Event, 16)
	s.watchers[id] = ch
	return ch, func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Session) setStatusLocked(status defs.Status) {
	s.status = status
	ev := Event{Status: status, RoomCount: len(s.rooms), Error: s.lastErr}
	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
			// Watcher isn't keeping up. Drop rather than block the session.
		}
	}
}

func asAppError(err error) *defs.AppError {
	if appErr, ok := err.(*defs.AppError); ok {
		return appErr
	}
	return defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", err.Error())
}
