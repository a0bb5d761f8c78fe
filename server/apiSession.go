package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/roomscan/roomscan/pkg/www"
	"github.com/roomscan/roomscan/server/defs"
	"github.com/roomscan/roomscan/server/detection"
	"github.com/roomscan/roomscan/server/imagex"
	"github.com/roomscan/roomscan/server/session"
	"github.com/roomscan/roomscan/server/storage"
)

// session looks up the session in the URL, or panics with a 404
func (s *Server) session(params httprouter.Params) *session.Session {
	id := params.ByName("id")
	sess := s.sessions.Get(id)
	if sess == nil {
		www.PanicNotFoundf("Session '%v' not found", id)
	}
	return sess
}

// sendAppError sends a classified error as JSON, with the given HTTP status
func sendAppError(w http.ResponseWriter, appErr *defs.AppError, code int) {
	raw, _ := json.Marshal(appErr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(raw)
}

func (s *Server) httpSessionCreate(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.sessions.NewSession()
	s.Log.Infof("Created session %v", sess.ID)
	www.SendJSON(w, sess.Snapshot())
}

func (s *Server) httpSessionGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.session(params).Snapshot())
}

func (s *Server) httpSessionDelete(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)
	sess.Reprocess()
	s.sessions.Delete(sess.ID)
	www.SendOK(w)
}

// httpSessionDetect accepts a multipart upload (field 'file', optional field
// 'options' holding a JSON detection options object) and starts a detection
// run against the backend chosen by the 'model' query parameter.
func (s *Server) httpSessionDetect(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)

	model, err := defs.ParseModel(www.QueryValue(r, "model"))
	if err != nil {
		www.PanicBadRequestf("%v", err)
	}

	// Headroom above the blueprint size limit, so that an oversized file
	// reaches the validator and produces its error, not a transport failure
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes*2)
	file, header, err := r.FormFile("file")
	www.Check(err)
	defer file.Close()
	data, err := io.ReadAll(file)
	www.Check(err)

	var options *detection.Options
	if raw := r.FormValue("options"); raw != "" {
		options = &detection.Options{}
		www.Check(json.Unmarshal([]byte(raw), options))
	}

	var archive session.Archiver
	if s.storage != nil {
		blobName := sess.ID + "/" + filepath.Base(header.Filename)
		store := s.storage
		archive = func(name string, blob []byte) error {
			return storage.WriteFile(store, blobName, bytes.NewReader(blob))
		}
	}

	mimeType := header.Header.Get("Content-Type")
	if appErr := sess.StartDetection(header.Filename, mimeType, data, model, options, archive); appErr != nil {
		sendAppError(w, appErr, http.StatusBadRequest)
		return
	}
	www.SendJSON(w, sess.Snapshot())
}

func (s *Server) httpSessionReprocess(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)
	sess.Reprocess()
	www.SendJSON(w, sess.Snapshot())
}

func (s *Server) httpSessionSelect(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)
	body := struct {
		RoomID string `json:"roomID"`
	}{}
	www.ReadJSON(w, r, &body, 1024)
	sess.Select(body.RoomID)
	www.SendOK(w)
}

func (s *Server) httpRoomUpdate(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)
	patch := session.RoomPatch{}
	www.ReadJSON(w, r, &patch, 1024*1024)
	sess.UpdateRoom(params.ByName("roomID"), &patch)
	www.SendOK(w)
}

func (s *Server) httpRoomDrag(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)
	body := struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}{}
	www.ReadJSON(w, r, &body, 1024)
	sess.Drag(params.ByName("roomID"), body.DX, body.DY)
	www.SendOK(w)
}

func (s *Server) httpRoomDelete(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)
	sess.DeleteRoom(params.ByName("roomID"))
	www.SendOK(w)
}

func (s *Server) httpSessionSummary(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.session(params).Summarize())
}

func (s *Server) httpSessionExport(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)
	raw, err := sess.Export(time.Now())
	www.Check(err)
	if s.storage != nil {
		// Best effort. The download must not fail because archival did.
		if err := storage.WriteFile(s.storage, sess.ID+"/room-detection-results.json", bytes.NewReader(raw)); err != nil {
			s.Log.Warnf("Session %v: export archival failed: %v", sess.ID, err)
		}
	}
	www.SendFileDownload(w, "room-detection-results.json", "application/json", raw)
}

// httpSessionPreview renders a JPEG thumbnail of the uploaded blueprint.
// Optional 'width' and 'height' query parameters bound the thumbnail;
// the image is never upscaled.
func (s *Server) httpSessionPreview(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)
	_, data := sess.Blueprint()
	if data == nil {
		www.PanicNotFoundf("Session has no blueprint")
	}
	maxWidth := 320
	maxHeight := 320
	if v := www.QueryValue(r, "width"); v != "" {
		maxWidth = www.RequiredQueryInt(r, "width")
	}
	if v := www.QueryValue(r, "height"); v != "" {
		maxHeight = www.RequiredQueryInt(r, "height")
	}
	thumb, err := imagex.Preview(data, maxWidth, maxHeight)
	www.Check(err)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprint(len(thumb)))
	w.Write(thumb)
}

// httpSessionWatch streams session state transitions over a websocket.
// Each transition is sent as one JSON event. The socket also immediately
// receives the session's current state on connect.
func (s *Server) httpSessionWatch(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sess := s.session(params)

	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("Session %v: websocket upgrade failed: %v", sess.ID, err)
		return
	}
	defer conn.Close()

	events, unsubscribe := sess.Watch()
	defer unsubscribe()

	snap := sess.Snapshot()
	if err := conn.WriteJSON(session.Event{Status: snap.Status, RoomCount: len(snap.Rooms), Error: snap.Error}); err != nil {
		return
	}

	// Drain the socket so we notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
