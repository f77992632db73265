package util

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// DetectImage checks data is one of the accepted photo formats and returns
// its mime type without parameters.
func DetectImage(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	allowed := AllowedImageTypes
	if FFmpegAvailable() {
		allowed = append(allowed[:len(allowed):len(allowed)], HEICImageTypes...)
	}
	for _, t := range allowed {
		if mt.Is(t) {
			return t, nil
		}
	}
	return mt.String(), fmt.Errorf("%w: %s is not a supported image", ErrInvalidFile, mt.String())
}

// Extension returns the usual file extension for a mime type, with the dot.
func Extension(mimeType string) string {
	if mt := mimetype.Lookup(mimeType); mt != nil {
		return mt.Extension()
	}
	return ""
}
