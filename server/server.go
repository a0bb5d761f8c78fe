package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/roomscan/roomscan/pkg/logs"
	"github.com/roomscan/roomscan/server/config"
	"github.com/roomscan/roomscan/server/detection"
	"github.com/roomscan/roomscan/server/session"
	"github.com/roomscan/roomscan/server/storage"
)

type Server struct {
	Log      logs.Log
	Config   *config.Config
	detector *detection.Client
	sessions *session.Manager
	storage  storage.Storage // nil when no blob store is configured

	maxUploadBytes int64
	signalIn       chan os.Signal
	httpServer     *http.Server
	httpRouter     *httprouter.Router
	wsUpgrader     websocket.Upgrader
}

func NewServer(log logs.Log, cfg *config.Config) (*Server, error) {
	detector := detection.NewClient(log, cfg.Profiles())
	detector.SetRetryPolicy(cfg.MaxRetries, cfg.RetryDelay())

	// Open blob store, if one is configured. Without it, detection still
	// works, but blueprints are not archived and the direct-upload path is
	// disabled.
	var blobStore storage.Storage
	var err error
	if cfg.Storage != nil {
		if cfg.Storage.GCS != nil {
			blobStore, err = storage.NewGCS(log, cfg.Storage.GCS.Bucket)
		} else if cfg.Storage.Filesystem != nil {
			blobStore, err = storage.NewFilesystem(log, cfg.Storage.Filesystem.Root, cfg.PublicURL)
		} else {
			err = fmt.Errorf("Storage is configured, but neither 'filesystem' nor 'gcs' is set")
		}
		if err != nil {
			return nil, err
		}
	}

	maxUploadBytes, err := cfg.MaxUploadBytes()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Log:            log,
		Config:         cfg,
		detector:       detector,
		sessions:       session.NewManager(log, detector),
		storage:        blobStore,
		maxUploadBytes: maxUploadBytes,
	}
	s.setupHttpRoutes()
	return s, nil
}

// port example: ":8080"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. Shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Log.Warnf("Shutdown complete, with error: %v", err)
	} else {
		s.Log.Infof("Shutdown complete")
	}
	s.Log.Close()
}
