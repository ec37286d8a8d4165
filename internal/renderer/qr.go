package renderer

import (
	"fmt"
	"image"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// CardURL expands a badge URL template. "{stem}" is replaced by the payload
// stem; a template without the placeholder is used as is.
func CardURL(template, stem string) string {
	return strings.ReplaceAll(template, "{stem}", stem)
}

// NewBadge encodes url as a QR code image of size x size pixels.
func NewBadge(url string, size int) (image.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("empty badge url")
	}
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr encode %q: %w", url, err)
	}
	return q.Image(size), nil
}
