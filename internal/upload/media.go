package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"potholytics-service/internal/domain/pothole"
)

type MediaKind string

const (
	KindUnknown MediaKind = ""
	KindImage   MediaKind = "image"
	KindVideo   MediaKind = "video"
)

// MediaFile is a single user-selected upload. It lives for one
// upload/detection cycle only.
type MediaFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f MediaFile) Empty() bool {
	return len(f.Data) == 0
}

func (f MediaFile) Kind() MediaKind {
	switch {
	case strings.HasPrefix(f.ContentType, "image/"):
		return KindImage
	case strings.HasPrefix(f.ContentType, "video/"):
		return KindVideo
	default:
		return KindUnknown
	}
}

// ReadMediaFile buffers an upload. A missing or generic declared content type
// is replaced with the sniffed one.
func ReadMediaFile(name, declared string, r io.Reader, maxBytes int64) (MediaFile, error) {
	if r == nil {
		return MediaFile{}, fmt.Errorf("%w: file is required", pothole.ErrValidation)
	}

	reader := r
	if maxBytes > 0 {
		reader = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return MediaFile{}, fmt.Errorf("read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return MediaFile{}, fmt.Errorf("%w: file exceeds %d bytes", pothole.ErrValidation, maxBytes)
	}
	if len(data) == 0 {
		return MediaFile{}, fmt.Errorf("%w: file is empty", pothole.ErrValidation)
	}

	return MediaFile{
		Name:        name,
		ContentType: resolveContentType(declared, data),
		Data:        data,
	}, nil
}

func resolveContentType(declared string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	detected, err := mimetype.DetectReader(bytes.NewReader(data))
	if err != nil {
		return "application/octet-stream"
	}
	mediaType, _, _ := mime.ParseMediaType(detected.String())
	if mediaType == "" {
		return detected.String()
	}
	return mediaType
}
