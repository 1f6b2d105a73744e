package ports

import "github.com/bnema/zalo-accounts/internal/domain"

type QRRenderer interface {
	PNG(payload string) ([]byte, error)
}

type AttachmentInspector interface {
	Inspect(filename string, data []byte) domain.AttachmentMetadata
}
