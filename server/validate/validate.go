package validate

// validate runs the pre-flight checks on a candidate blueprint upload,
// before anything is sent to a detection backend.

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roomscan/roomscan/server/defs"
)

// MaxFileSize is the upload cap: 10 MiB exactly
const MaxFileSize = 10 * 1024 * 1024

var allowedMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/tiff": true,
}

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".tif":  true,
}

// BlueprintFile validates a candidate upload. Returns nil if the file is
// acceptable. Size is checked first, then type. The type check passes if
// either the declared MIME type or the file extension is an accepted image
// format - browsers and OSes report unreliable MIME types, so the extension
// acts as a fallback.
func BlueprintFile(name string, size int64, mimeType string) *defs.AppError {
	if size > MaxFileSize {
		return defs.NewError(defs.ErrorFileTooLarge,
			"File size must be under 10MB",
			fmt.Sprintf("Your file is %.2fMB", float64(size)/1024/1024))
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedMimeTypes[mimeType] && !allowedExtensions[ext] {
		received := mimeType
		if received == "" {
			received = "unknown type"
		}
		return defs.NewError(defs.ErrorInvalidFormat,
			"Please upload a PNG, JPG, or TIFF file",
			"Received: "+received)
	}

	return nil
}
