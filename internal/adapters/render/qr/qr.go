// Package qr renders login QR payloads as PNG images and terminal blocks.
package qr

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/bnema/zalo-accounts/internal/ports"
)

const defaultSize = 256

var errEmptyPayload = errors.New("empty qr payload")

type Renderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

var _ ports.QRRenderer = Renderer{}

func NewRenderer() Renderer {
	return Renderer{Size: defaultSize, Level: qrcode.Medium}
}

func (r Renderer) PNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errEmptyPayload
	}
	size := r.Size
	if size <= 0 {
		size = defaultSize
	}

	png, err := qrcode.Encode(payload, r.Level, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return png, nil
}

// Terminal renders payload with half-block characters for printing in a
// terminal.
func (r Renderer) Terminal(payload string) (string, error) {
	if payload == "" {
		return "", errEmptyPayload
	}

	code, err := qrcode.New(payload, r.Level)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return code.ToSmallString(false), nil
}
