package validate

import (
	"testing"

	"github.com/roomscan/roomscan/server/defs"
	"github.com/stretchr/testify/require"
)

func TestFileSize(t *testing.T) {
	// Exactly at the limit is fine
	require.Nil(t, BlueprintFile("plan.png", MaxFileSize, "image/png"))

	// One byte over is rejected, regardless of type
	err := BlueprintFile("plan.png", MaxFileSize+1, "image/png")
	require.NotNil(t, err)
	require.Equal(t, defs.ErrorFileTooLarge, err.Kind)
	require.Equal(t, "Your file is 10.00MB", err.Details)

	err = BlueprintFile("huge.exe", 25*1024*1024, "application/octet-stream")
	require.Equal(t, defs.ErrorFileTooLarge, err.Kind)
	require.Equal(t, "Your file is 25.00MB", err.Details)
}

func TestFileType(t *testing.T) {
	// MIME type alone is enough
	require.Nil(t, BlueprintFile("blueprint", 1000, "image/png"))
	require.Nil(t, BlueprintFile("scan.dat", 1000, "image/tiff"))

	// Extension alone is enough (empty or bogus MIME type)
	require.Nil(t, BlueprintFile("plan.jpg", 1000, ""))
	require.Nil(t, BlueprintFile("plan.TIFF", 1000, "application/octet-stream"))
	require.Nil(t, BlueprintFile("floor2.tif", 1000, "binary/weird"))
	require.Nil(t, BlueprintFile("a.b.c.jpeg", 1000, ""))

	// Neither passes
	err := BlueprintFile("notes.pdf", 1000, "application/pdf")
	require.NotNil(t, err)
	require.Equal(t, defs.ErrorInvalidFormat, err.Kind)
	require.Equal(t, "Received: application/pdf", err.Details)

	err = BlueprintFile("mystery", 1000, "")
	require.Equal(t, defs.ErrorInvalidFormat, err.Kind)
	require.Equal(t, "Received: unknown type", err.Details)
}

func TestSizeCheckedBeforeType(t *testing.T) {
	err := BlueprintFile("notes.pdf", MaxFileSize+1, "application/pdf")
	require.Equal(t, defs.ErrorFileTooLarge, err.Kind)
}
