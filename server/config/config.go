package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/roomscan/roomscan/pkg/kibi"
	"github.com/roomscan/roomscan/server/defs"
	"github.com/roomscan/roomscan/server/detection"
)

// Backend is one detection backend profile: where it lives, and how long we
// wait for it
type Backend struct {
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type FilesystemStorage struct {
	Root string `json:"root"` // Path to the root of the blob store
}

type GCSStorage struct {
	Bucket string `json:"bucket"` // Name of the GCS bucket
}

// One of the storage options may be configured (either 'filesystem' or 'gcs').
// With neither, blueprint archival and the direct-upload path are disabled.
type StorageConfig struct {
	Filesystem *FilesystemStorage `json:"filesystem"`
	GCS        *GCSStorage        `json:"gcs"`
}

type Config struct {
	Port          string         `json:"port"`          // eg ":8080"
	PublicURL     string         `json:"publicURL"`     // External base URL of this service (for filesystem upload URLs)
	OpenCV        Backend        `json:"opencv"`        // Fast heuristic backend
	YOLO          Backend        `json:"yolo"`          // Accurate neural backend
	MaxRetries    int            `json:"maxRetries"`    // Total attempts per detection call
	RetryDelayMS  int            `json:"retryDelayMS"`  // Backoff base, doubled per attempt
	MaxUploadSize string         `json:"maxUploadSize"` // eg "10 MB"
	Storage       *StorageConfig `json:"storage"`
}

func defaultConfig() *Config {
	return &Config{
		Port:          ":8080",
		OpenCV:        Backend{URL: "http://localhost:3000", TimeoutSeconds: 30},
		YOLO:          Backend{URL: "http://localhost:3001", TimeoutSeconds: 60},
		MaxRetries:    3,
		RetryDelayMS:  1000,
		MaxUploadSize: "10 MB",
	}
}

// LoadConfig reads the JSON config file (optional - an empty filename yields
// the built-in defaults), then applies environment variable overrides.
// Backend endpoints and timeouts are environment-supplied in deployments:
// ROOMSCAN_OPENCV_URL, ROOMSCAN_OPENCV_TIMEOUT, ROOMSCAN_YOLO_URL,
// ROOMSCAN_YOLO_TIMEOUT, ROOMSCAN_PORT.
func LoadConfig(filename string) (*Config, error) {
	cfg := defaultConfig()
	if filename != "" {
		raw, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("Error loading %v: %w", filename, err)
		}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("Error loading as JSON %v: %w", filename, err)
		}
	}
	applyEnv(cfg)
	if _, err := cfg.MaxUploadBytes(); err != nil {
		return nil, fmt.Errorf("Invalid maxUploadSize '%v': %w", cfg.MaxUploadSize, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envString("ROOMSCAN_PORT", &cfg.Port)
	envString("ROOMSCAN_PUBLIC_URL", &cfg.PublicURL)
	envString("ROOMSCAN_OPENCV_URL", &cfg.OpenCV.URL)
	envInt("ROOMSCAN_OPENCV_TIMEOUT", &cfg.OpenCV.TimeoutSeconds)
	envString("ROOMSCAN_YOLO_URL", &cfg.YOLO.URL)
	envInt("ROOMSCAN_YOLO_TIMEOUT", &cfg.YOLO.TimeoutSeconds)
}

func envString(key string, out *string) {
	if v := os.Getenv(key); v != "" {
		*out = v
	}
}

func envInt(key string, out *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*out = i
		}
	}
}

// Profiles returns the detection client profiles described by this config
func (c *Config) Profiles() map[defs.Model]detection.Profile {
	return map[defs.Model]detection.Profile{
		defs.ModelOpenCV: {BaseURL: c.OpenCV.URL, Timeout: time.Duration(c.OpenCV.TimeoutSeconds) * time.Second},
		defs.ModelYOLO:   {BaseURL: c.YOLO.URL, Timeout: time.Duration(c.YOLO.TimeoutSeconds) * time.Second},
	}
}

// MaxUploadBytes parses the configured upload cap
func (c *Config) MaxUploadBytes() (int64, error) {
	return kibi.ParseBytes(c.MaxUploadSize)
}

// RetryDelay returns the configured backoff base
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}
