package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roomscan/roomscan/pkg/logs"
)

// Filesystem is a filesystem-based blob store. Upload URLs point back at our
// own /api/blob PUT endpoint, since there is no cloud service to sign for.
type Filesystem struct {
	Root string

	log     logs.Log
	baseURL string
}

func NewFilesystem(log logs.Log, root, baseURL string) (*Filesystem, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("Failed to create root directory %v (relative path %v): %w", absRoot, root, err)
	}
	return &Filesystem{
		Root:    absRoot,
		log:     log,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func validateName(name string) error {
	if name == "" || strings.Contains(name, "..") {
		return fmt.Errorf("Invalid file name %v", name)
	}
	return nil
}

func (fs *Filesystem) WriteFile(name string) (io.WriteCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	fs.log.Infof("Writing file %v", name)
	fullPath := filepath.Join(fs.Root, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(fullPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
}

func (fs *Filesystem) ReadFile(name string) (*File, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(fs.Root, name))
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &File{
		Reader:     file,
		ModifiedAt: st.ModTime(),
		Size:       st.Size(),
	}, nil
}

func (fs *Filesystem) DeleteFile(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	fs.log.Infof("Deleting file %v", name)
	return os.Remove(filepath.Join(fs.Root, name))
}

func (fs *Filesystem) UploadURL(name, contentType string, expires time.Duration) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if fs.baseURL == "" {
		return "", ErrNoUploadURL
	}
	return fs.baseURL + "/api/blob/" + name, nil
}
