package imagedata

import (
	"errors"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/codabar"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/code93"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/twooffive"
	"github.com/labelprint/backend/internal/domain/label"
)

var (
	errEmptyInput        = errors.New("input is empty")
	errUnknownSymbology  = errors.New("unknown barcode symbology")
	errDigitsOnly        = errors.New("symbology accepts digits only")
	errTooManyDigits     = errors.New("too many digits for symbology")
	errInvalidDimensions = errors.New("barcode dimensions must be positive")
)

// Symbology names a linear barcode standard
type Symbology string

const (
	Code128     Symbology = "code128"
	Code39      Symbology = "code39"
	Code93      Symbology = "code93"
	EAN13       Symbology = "ean13"
	EAN8        Symbology = "ean8"
	Interleaved Symbology = "itf"
	Codabar     Symbology = "codabar"
)

// ParseSymbology accepts the symbology name in any case, with or without dashes
func ParseSymbology(s string) (Symbology, bool) {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	switch name {
	case "", "code128":
		return Code128, true
	case "code39":
		return Code39, true
	case "code93":
		return Code93, true
	case "ean13", "ean":
		return EAN13, true
	case "ean8":
		return EAN8, true
	case "itf", "interleaved2of5", "i2of5":
		return Interleaved, true
	case "codabar":
		return Codabar, true
	}
	return "", false
}

// AllSymbologies returns every supported linear symbology
func AllSymbologies() []Symbology {
	return []Symbology{Code128, Code39, Code93, EAN13, EAN8, Interleaved, Codabar}
}

// Digits returns the number of data digits a fixed-length symbology expects
// (without the check digit), or 0 for variable-length symbologies
func (s Symbology) Digits() int {
	switch s {
	case EAN13:
		return 12
	case EAN8:
		return 7
	}
	return 0
}

// BarcodeOptions controls the rendered barcode size
type BarcodeOptions struct {
	// ModuleWidth is the width in pixels of the narrowest bar (default: 2)
	ModuleWidth int
	// Height in pixels (default: 60)
	Height int
}

const (
	defaultModuleWidth = 2
	defaultBarHeight   = 60
)

// Barcode encodes data in the given symbology as a PNG data URI.
// Fixed-length numeric symbologies are left-padded with zeros.
func Barcode(data string, symbology Symbology, opts BarcodeOptions) (string, error) {
	if data == "" {
		return "", label.NewEncodingError(string(symbology), data, errEmptyInput)
	}

	bc, err := encodeLinear(data, symbology)
	if err != nil {
		return "", label.NewEncodingError(string(symbology), data, err)
	}

	moduleWidth := opts.ModuleWidth
	if moduleWidth == 0 {
		moduleWidth = defaultModuleWidth
	}
	height := opts.Height
	if height == 0 {
		height = defaultBarHeight
	}
	if moduleWidth < 0 || height < 0 {
		return "", label.NewEncodingError(string(symbology), data, errInvalidDimensions)
	}

	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*moduleWidth, height)
	if err != nil {
		return "", label.NewEncodingError(string(symbology), data, err)
	}
	uri, err := FromImage(scaled)
	if err != nil {
		return "", label.NewEncodingError(string(symbology), data, err)
	}
	return uri, nil
}

func encodeLinear(data string, symbology Symbology) (barcode.Barcode, error) {
	switch symbology {
	case Code128:
		return code128.Encode(data)
	case Code39:
		return code39.Encode(data, false, true)
	case Code93:
		return code93.Encode(data, true, true)
	case EAN13, EAN8:
		digits, err := zeroFill(data, symbology.Digits())
		if err != nil {
			return nil, err
		}
		return ean.Encode(digits)
	case Interleaved:
		if !isDigits(data) {
			return nil, errDigitsOnly
		}
		if len(data)%2 == 1 {
			data = "0" + data
		}
		return twooffive.Encode(data, true)
	case Codabar:
		return codabar.Encode(data)
	}
	return nil, errUnknownSymbology
}

// zeroFill left-pads digits to width; input that already carries its
// check digit (width+1) is passed through for the encoder to verify
func zeroFill(data string, width int) (string, error) {
	if !isDigits(data) {
		return "", errDigitsOnly
	}
	if len(data) > width+1 {
		return "", errTooManyDigits
	}
	if len(data) < width {
		data = strings.Repeat("0", width-len(data)) + data
	}
	return data, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
