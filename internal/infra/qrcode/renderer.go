// Package qrcode renders QR payload URLs to PNG images.
package qrcode

import (
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/ports/adapter"
)

var _ adapter.QRRenderer = Renderer{}

// Renderer encodes with medium error correction, which tolerates roughly
// 15% damage to a printed code.
type Renderer struct{}

func (Renderer) PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qrcode: empty content")
	}
	if size <= 0 {
		size = 256
	}
	png, err := goqrcode.Encode(content, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: %w", err)
	}
	return png, nil
}
