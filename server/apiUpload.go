package server

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/roomscan/roomscan/pkg/www"
	"github.com/roomscan/roomscan/server/storage"
)

// httpUploadURL hands the client a URL it can PUT a blueprint to directly,
// bypassing this server's request body limits. With a blob store configured
// the URL points at the store (a signed URL for GCS, our own blob endpoint
// for filesystem storage). Without one, we ask the fast detection backend
// for its staging URL.
func (s *Server) httpUploadURL(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	body := struct {
		Filename    string `json:"filename"`
		ContentType string `json:"contentType"`
	}{}
	www.ReadJSON(w, r, &body, 1024)
	if body.Filename == "" {
		www.PanicBadRequestf("filename is required")
	}

	var url string
	var err error
	if s.storage != nil {
		url, err = s.storage.UploadURL(body.Filename, body.ContentType, 15*time.Minute)
	} else {
		url, err = s.detector.UploadURL(r.Context(), body.Filename)
	}
	www.Check(err)

	www.SendJSON(w, map[string]string{"upload_url": url})
}

// httpBlobPut is the upload endpoint behind the filesystem store's upload
// URLs. GCS uploads go straight to the signed URL and never hit this.
func (s *Server) httpBlobPut(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.storage == nil {
		www.PanicNotFoundf("No storage configured")
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes*2)
	www.Check(storage.WriteFile(s.storage, params.ByName("name"), r.Body))
	www.SendOK(w)
}
