package session

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roomscan/roomscan/pkg/geom"
	"github.com/roomscan/roomscan/pkg/logs"
	"github.com/roomscan/roomscan/server/defs"
	"github.com/roomscan/roomscan/server/detection"
	"github.com/stretchr/testify/require"
)

// fakeDetector stands in for the detection backends
type fakeDetector struct {
	resp    *detection.Response
	err     error
	release chan struct{} // when non-nil, Detect blocks until this closes
	calls   atomic.Int32
}

func (f *fakeDetector) Detect(ctx context.Context, model defs.Model, filename string, file []byte, options *detection.Options) (*detection.Response, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func testPNG(t *testing.T, width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func testResponse() *detection.Response {
	return &detection.Response{
		Rooms: []detection.Room{
			{ID: "room-1", BoundingBox: geom.Box{100, 100, 350, 300}, Confidence: 0.92, NameHint: "Kitchen"},
			{ID: "room-2", BoundingBox: geom.Box{400, 100, 900, 500}, Confidence: 0.55},
		},
		ProcessingTimeMS: 87,
		ModelVersion:     "yolo-v8n-rooms-1",
	}
}

func newTestSession(t *testing.T, d Detector) *Session {
	return NewSession("test-session", logs.NewTestingLog(t), d)
}

func waitStatus(t *testing.T, s *Session, want defs.Status) {
	require.Eventually(t, func() bool { return s.Status() == want }, 2*time.Second, time.Millisecond)
}

func startDetection(t *testing.T, s *Session, d defs.Model) {
	appErr := s.StartDetection("plan.png", "image/png", testPNG(t, 600, 800), d, nil, nil)
	require.Nil(t, appErr)
}

func successfulSession(t *testing.T) *Session {
	s := newTestSession(t, &fakeDetector{resp: testResponse()})
	startDetection(t, s, defs.ModelOpenCV)
	waitStatus(t, s, defs.StatusSuccess)
	return s
}

func TestDetectionSuccess(t *testing.T) {
	s := successfulSession(t)
	snap := s.Snapshot()
	require.Equal(t, defs.StatusSuccess, snap.Status)
	require.Nil(t, snap.Error)
	require.Equal(t, 600, snap.ImageWidth)
	require.Equal(t, 800, snap.ImageHeight)
	require.Equal(t, "yolo-v8n-rooms-1", snap.ModelVersion)
	require.Len(t, snap.Rooms, 2)

	// 600x800 reference case: [100,100,350,300] -> x=60 y=80 w=150 h=160
	r := snap.Rooms[0]
	require.Equal(t, "room-1", r.ID)
	require.Equal(t, 60.0, r.X)
	require.Equal(t, 80.0, r.Y)
	require.Equal(t, 150.0, r.Width)
	require.Equal(t, 160.0, r.Height)

	// Confidence tiers at the fixed thresholds
	require.Equal(t, TierHigh, snap.Rooms[0].Tier())
	require.Equal(t, "#10b981", snap.Rooms[0].Tier().Color())
	require.Equal(t, TierLow, snap.Rooms[1].Tier())
	require.Equal(t, "#ef4444", snap.Rooms[1].Tier().Color())
}

func TestValidationFailureNeverReachesDetector(t *testing.T) {
	fake := &fakeDetector{resp: testResponse()}
	s := newTestSession(t, fake)

	appErr := s.StartDetection("notes.pdf", "application/pdf", []byte("%PDF"), defs.ModelOpenCV, nil, nil)
	require.NotNil(t, appErr)
	require.Equal(t, defs.ErrorInvalidFormat, appErr.Kind)
	require.Equal(t, defs.StatusError, s.Status())
	require.Empty(t, s.Snapshot().Rooms)
	require.Equal(t, int32(0), fake.calls.Load())

	// Garbage bytes behind a valid extension fail at decode, also before the backend
	appErr = s.StartDetection("plan.png", "image/png", []byte("not a png"), defs.ModelOpenCV, nil, nil)
	require.NotNil(t, appErr)
	require.Equal(t, defs.ErrorInvalidFormat, appErr.Kind)
	require.Equal(t, int32(0), fake.calls.Load())
}

func TestDetectionError(t *testing.T) {
	fake := &fakeDetector{err: defs.NewError(defs.ErrorNetwork, "Network error. Check your connection and try again.", "")}
	s := newTestSession(t, fake)
	startDetection(t, s, defs.ModelYOLO)
	waitStatus(t, s, defs.StatusError)

	snap := s.Snapshot()
	require.NotNil(t, snap.Error)
	require.Equal(t, defs.ErrorNetwork, snap.Error.Kind)
	require.Empty(t, snap.Rooms)
}

func TestStaleResultDropped(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeDetector{resp: testResponse(), release: release}
	s := newTestSession(t, fake)

	startDetection(t, s, defs.ModelOpenCV)
	require.Equal(t, defs.StatusProcessing, s.Status())

	// Reprocess while the detection is still in flight
	s.Reprocess()
	require.Equal(t, defs.StatusIdle, s.Status())

	// Let the detection resolve. Its result is stale and must be dropped.
	close(release)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, defs.StatusIdle, s.Status())
	require.Empty(t, s.Snapshot().Rooms)
}

// sequenceDetector blocks its first call until released; later calls return
// immediately. Used to race a slow detection against a newer one.
type sequenceDetector struct {
	first   *detection.Response
	second  *detection.Response
	release chan struct{}
	calls   atomic.Int32
}

func (d *sequenceDetector) Detect(ctx context.Context, model defs.Model, filename string, file []byte, options *detection.Options) (*detection.Response, error) {
	if d.calls.Add(1) == 1 {
		select {
		case <-d.release:
		case <-ctx.Done():
		}
		return d.first, nil
	}
	return d.second, nil
}

func TestNewDetectionInvalidatesOutstanding(t *testing.T) {
	release := make(chan struct{})
	slow := &sequenceDetector{
		first:   &detection.Response{Rooms: []detection.Room{{ID: "stale-room", Confidence: 0.5}}},
		second:  testResponse(),
		release: release,
	}
	s := newTestSession(t, slow)

	startDetection(t, s, defs.ModelOpenCV)
	require.Equal(t, defs.StatusProcessing, s.Status())

	// Second detection supersedes the first
	startDetection(t, s, defs.ModelYOLO)
	waitStatus(t, s, defs.StatusSuccess)

	close(release)
	time.Sleep(50 * time.Millisecond)

	snap := s.Snapshot()
	require.Equal(t, defs.StatusSuccess, snap.Status)
	require.Len(t, snap.Rooms, 2)
	require.Equal(t, "room-1", snap.Rooms[0].ID)
}

func TestReprocessClearsEverything(t *testing.T) {
	s := successfulSession(t)
	s.Select("room-1")
	s.Reprocess()

	snap := s.Snapshot()
	require.Equal(t, defs.StatusIdle, snap.Status)
	require.Empty(t, snap.Rooms)
	require.Empty(t, snap.SelectedID)
	require.Nil(t, snap.Error)
	require.Empty(t, snap.Blueprint)
}

func TestSelect(t *testing.T) {
	s := successfulSession(t)

	s.Select("room-2")
	require.Equal(t, "room-2", s.Snapshot().SelectedID)

	// Unknown id leaves the selection unchanged
	s.Select("no-such-room")
	require.Equal(t, "room-2", s.Snapshot().SelectedID)

	// Selection is exclusive
	s.Select("room-1")
	snap := s.Snapshot()
	require.Equal(t, "room-1", snap.SelectedID)
	require.True(t, snap.Rooms[0].Selected)
	require.False(t, snap.Rooms[1].Selected)

	// Empty id clears
	s.Select("")
	require.Empty(t, s.Snapshot().SelectedID)
}

func TestUpdateRoom(t *testing.T) {
	s := successfulSession(t)

	x := 999.5
	name := "Pantry"
	s.UpdateRoom("room-1", &RoomPatch{X: &x, NameHint: &name})

	snap := s.Snapshot()
	require.Equal(t, 999.5, snap.Rooms[0].X)
	require.Equal(t, 80.0, snap.Rooms[0].Y) // untouched
	require.Equal(t, "Pantry", snap.Rooms[0].NameHint)

	// No clamping: rooms may leave the visible canvas
	farOut := -5000.0
	s.UpdateRoom("room-1", &RoomPatch{Y: &farOut})
	require.Equal(t, -5000.0, s.Snapshot().Rooms[0].Y)

	// Unknown id is a no-op
	s.UpdateRoom("no-such-room", &RoomPatch{X: &x})
	require.Len(t, s.Snapshot().Rooms, 2)
}

func TestDrag(t *testing.T) {
	s := successfulSession(t)
	s.Drag("room-1", 10, -20)
	snap := s.Snapshot()
	require.Equal(t, 70.0, snap.Rooms[0].X)
	require.Equal(t, 60.0, snap.Rooms[0].Y)
	require.Equal(t, 150.0, snap.Rooms[0].Width)
}

func TestDeleteRoom(t *testing.T) {
	s := successfulSession(t)

	// Deleting a non-selected room leaves the selection alone
	s.Select("room-1")
	s.DeleteRoom("room-2")
	snap := s.Snapshot()
	require.Len(t, snap.Rooms, 1)
	require.Equal(t, "room-1", snap.SelectedID)

	// Deleting the selected room clears the selection
	s.DeleteRoom("room-1")
	snap = s.Snapshot()
	require.Empty(t, snap.Rooms)
	require.Empty(t, snap.SelectedID)

	// Unknown id is a no-op
	s.DeleteRoom("room-1")
	require.Empty(t, s.Snapshot().Rooms)
}

func TestDegenerateBoxIsNotAnError(t *testing.T) {
	fake := &fakeDetector{resp: &detection.Response{
		Rooms:        []detection.Room{{ID: "point", BoundingBox: geom.Box{500, 500, 500, 500}, Confidence: 0.9}},
		ModelVersion: "opencv-v1",
	}}
	s := newTestSession(t, fake)
	startDetection(t, s, defs.ModelOpenCV)
	waitStatus(t, s, defs.StatusSuccess)

	snap := s.Snapshot()
	require.Len(t, snap.Rooms, 1)
	require.Equal(t, 0.0, snap.Rooms[0].Width)
	require.Equal(t, 0.0, snap.Rooms[0].Height)
}

func TestUploadingPath(t *testing.T) {
	var archived atomic.Int32
	archive := func(name string, data []byte) error {
		archived.Add(1)
		return nil
	}
	s := newTestSession(t, &fakeDetector{resp: testResponse()})
	events, unsubscribe := s.Watch()
	defer unsubscribe()

	appErr := s.StartDetection("plan.png", "image/png", testPNG(t, 600, 800), defs.ModelOpenCV, nil, archive)
	require.Nil(t, appErr)
	waitStatus(t, s, defs.StatusSuccess)
	require.Equal(t, int32(1), archived.Load())

	var seen []defs.Status
	for len(events) > 0 {
		seen = append(seen, (<-events).Status)
	}
	require.Equal(t, []defs.Status{defs.StatusUploading, defs.StatusProcessing, defs.StatusSuccess}, seen)
}

func TestManager(t *testing.T) {
	m := NewManager(logs.NewTestingLog(t), &fakeDetector{resp: testResponse()})
	a := m.NewSession()
	b := m.NewSession()
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, 2, m.Count())
	require.Equal(t, a, m.Get(a.ID))
	require.Nil(t, m.Get("no-such-session"))

	m.Delete(a.ID)
	require.Nil(t, m.Get(a.ID))
	require.Equal(t, 1, m.Count())
}

func TestWatchEvents(t *testing.T) {
	s := newTestSession(t, &fakeDetector{resp: testResponse()})
	events, unsubscribe := s.Watch()
	defer unsubscribe()

	startDetection(t, s, defs.ModelOpenCV)
	waitStatus(t, s, defs.StatusSuccess)

	first := <-events
	require.Equal(t, defs.StatusProcessing, first.Status)
	second := <-events
	require.Equal(t, defs.StatusSuccess, second.Status)
	require.Equal(t, 2, second.RoomCount)
}
