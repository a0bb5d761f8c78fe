package server

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/roomscan/roomscan/pkg/www"
)

func (s *Server) setupHttpRoutes() {
	router := httprouter.New()

	route := func(method, path string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, path, handle)
	}

	route("GET", "/api/ping", s.httpPing)

	route("POST", "/api/session", s.httpSessionCreate)
	route("GET", "/api/session/:id", s.httpSessionGet)
	route("DELETE", "/api/session/:id", s.httpSessionDelete)
	route("POST", "/api/session/:id/detect", s.httpSessionDetect)
	route("POST", "/api/session/:id/reprocess", s.httpSessionReprocess)
	route("POST", "/api/session/:id/select", s.httpSessionSelect)
	route("POST", "/api/session/:id/room/:roomID", s.httpRoomUpdate)
	route("PATCH", "/api/session/:id/room/:roomID", s.httpRoomUpdate)
	route("POST", "/api/session/:id/room/:roomID/drag", s.httpRoomDrag)
	route("DELETE", "/api/session/:id/room/:roomID", s.httpRoomDelete)
	route("GET", "/api/session/:id/summary", s.httpSessionSummary)
	route("GET", "/api/session/:id/export", s.httpSessionExport)
	route("GET", "/api/session/:id/preview", s.httpSessionPreview)
	route("GET", "/api/session/:id/watch", s.httpSessionWatch)

	route("POST", "/api/upload-url", s.httpUploadURL)
	route("PUT", "/api/blob/:name", s.httpBlobPut)

	s.httpRouter = router
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Time int64 `json:"time"`
	}
	www.SendJSON(w, &pingJSON{Time: time.Now().Unix()})
}
