// Package qr renders printable QR codes for tags.
package qr

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 512

// Renderer builds QR codes pointing at the public contact page of a tag.
type Renderer struct {
	baseURL string
	size    int
}

// NewRenderer creates a renderer for links under baseURL.
func NewRenderer(baseURL string, size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{baseURL: baseURL, size: size}
}

// ContactURL is the link encoded in a tag's QR code.
func (r *Renderer) ContactURL(tagCode string) string {
	return r.baseURL + "/contact/" + url.PathEscape(tagCode)
}

// PNG encodes the contact URL for tagCode as a PNG image.
func (r *Renderer) PNG(tagCode string) ([]byte, error) {
	png, err := qrcode.Encode(r.ContactURL(tagCode), qrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code for %s: %w", tagCode, err)
	}
	return png, nil
}
