// Package media derives the attachment metadata the upstream requires when
// sending files.
package media

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

// Videos are sent with fixed dimensions; decoding them is not worth the cost.
const (
	videoWidth  = 1280
	videoHeight = 720
)

type Inspector struct{}

var _ ports.AttachmentInspector = Inspector{}

func NewInspector() Inspector {
	return Inspector{}
}

// Inspect sniffs the content type from data, falling back to the filename
// extension, and reads image dimensions where possible.
func (Inspector) Inspect(filename string, data []byte) domain.AttachmentMetadata {
	meta := domain.AttachmentMetadata{TotalSize: int64(len(data))}

	detected := mimetype.Detect(data)
	meta.MIME = detected.String()
	if detected.Is("application/octet-stream") || detected.Is("text/plain") {
		if byExt := mimeFromExtension(filename); byExt != "" {
			meta.MIME = byExt
		}
	}

	switch {
	case strings.HasPrefix(meta.MIME, "image/"):
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			meta.Width = cfg.Width
			meta.Height = cfg.Height
		}
	case strings.HasPrefix(meta.MIME, "video/"):
		meta.Width = videoWidth
		meta.Height = videoHeight
	}

	return meta
}

func mimeFromExtension(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return ""
	}
	switch strings.ToLower(filename[idx+1:]) {
	case "mp4":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "pdf":
		return "application/pdf"
	default:
		return ""
	}
}

// Attachment builds an attachment with its metadata filled in.
func (i Inspector) Attachment(filename string, data []byte) domain.Attachment {
	return domain.Attachment{Filename: filename, Data: data, Metadata: i.Inspect(filename, data)}
}
