package detection

// Direct-to-storage upload path: ask the API for a pre-signed URL, then PUT
// the raw file straight at it. Failures classify exactly like Detect's.

import (
	"context"
	"encoding/json"

	"github.com/roomscan/roomscan/server/defs"
)

// UploadURL asks the backend for a pre-signed upload URL for 'filename'
func (c *Client) UploadURL(ctx context.Context, filename string) (string, error) {
	profile := c.profile(defs.ModelOpenCV)
	reqBody, err := json.Marshal(map[string]string{"filename": filename})
	if err != nil {
		return "", defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", err.Error())
	}
	respBody, appErr := c.doWithRetry(ctx, profile, "POST", profile.BaseURL+"/upload-url", "application/json", reqBody)
	if appErr != nil {
		return "", appErr
	}
	response := struct {
		UploadURL string `json:"upload_url"`
	}{}
	if err := json.Unmarshal(respBody, &response); err != nil || response.UploadURL == "" {
		return "", defs.NewError(defs.ErrorUnknown, "An unexpected error occurred", "Undecodable upload-url response")
	}
	return response.UploadURL, nil
}

// Upload PUTs the raw file at a pre-signed URL. The Content-Type must match
// the file, because signed URLs typically bind it.
func (c *Client) Upload(ctx context.Context, url, contentType string, file []byte) error {
	profile := c.profile(defs.ModelOpenCV)
	if _, appErr := c.doWithRetry(ctx, profile, "PUT", url, contentType, file); appErr != nil {
		return appErr
	}
	return nil
}
