package imagedata

import (
	"image/color"
	"strings"

	"github.com/labelprint/backend/internal/domain/label"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRBoxSize = 5
	maxQRBoxSize     = 64
)

// QROptions controls QR code rendering
type QROptions struct {
	// BoxSize is the size in pixels of one QR module (default: 5)
	BoxSize int
	// Border keeps the 4-module quiet zone around the symbol (default: off)
	Border bool
	// Level is the error recovery level (default: Medium)
	Level qrcode.RecoveryLevel
	// Foreground and Background default to black on white
	Foreground color.Color
	Background color.Color
}

// ParseRecoveryLevel maps "L", "M", "Q", "H" (or their long names) to a recovery level
func ParseRecoveryLevel(s string) (qrcode.RecoveryLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L", "LOW":
		return qrcode.Low, true
	case "M", "MEDIUM", "":
		return qrcode.Medium, true
	case "Q", "HIGH":
		return qrcode.High, true
	case "H", "HIGHEST":
		return qrcode.Highest, true
	}
	return qrcode.Medium, false
}

// QRCode encodes data as a QR code PNG data URI
func QRCode(data string, opts QROptions) (string, error) {
	if data == "" {
		return "", label.NewEncodingError("qr", data, errEmptyInput)
	}

	level := opts.Level
	if level < qrcode.Low || level > qrcode.Highest {
		level = qrcode.Medium
	}
	boxSize := opts.BoxSize
	if boxSize <= 0 {
		boxSize = defaultQRBoxSize
	}
	if boxSize > maxQRBoxSize {
		boxSize = maxQRBoxSize
	}

	q, err := qrcode.New(data, level)
	if err != nil {
		return "", label.NewEncodingError("qr", data, err)
	}
	q.DisableBorder = !opts.Border
	if opts.Foreground != nil {
		q.ForegroundColor = opts.Foreground
	}
	if opts.Background != nil {
		q.BackgroundColor = opts.Background
	}

	// A negative size renders each module as boxSize pixels
	png, err := q.PNG(-boxSize)
	if err != nil {
		return "", label.NewEncodingError("qr", data, err)
	}
	return Encode("image/png", png), nil
}
