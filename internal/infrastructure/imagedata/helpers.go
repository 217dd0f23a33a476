package imagedata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// HelperFunc is the signature shared by every template-facing encoder
type HelperFunc = func(args ...any) (string, error)

// Helpers returns the template-facing encoders keyed by template name.
//
//	{{ qrCode .sample_id }}              {{ qrCode .url 8 "H" true }}
//	{{ barcode .sku }}                   {{ barcode .gtin "ean13" 40 3 }}
//	{{ datamatrix .sample_id }}          {{ datamatrix .sample_id 3 true }}
//	{{ imageData "assets/logo.png" }}    {{ imageData .photo 200 200 }}
//	{{ hiroSquare "20mm" }}
func Helpers() map[string]HelperFunc {
	return map[string]HelperFunc{
		"qrCode":     qrCodeHelper,
		"barcode":    barcodeHelper,
		"datamatrix": dataMatrixHelper,
		"imageData":  imageDataHelper,
		"hiroSquare": hiroSquareHelper,
		"wrap":       wrapHelper,
		"now":        nowHelper,
	}
}

func qrCodeHelper(args ...any) (string, error) {
	if len(args) < 1 || len(args) > 4 {
		return "", fmt.Errorf("qrCode expects 1 to 4 arguments, got %d", len(args))
	}
	opts := QROptions{}
	if len(args) > 1 {
		size, err := ToInt(args[1])
		if err != nil {
			return "", fmt.Errorf("qrCode box size: %w", err)
		}
		opts.BoxSize = size
	}
	if len(args) > 2 {
		level, ok := ParseRecoveryLevel(ToString(args[2]))
		if !ok {
			return "", fmt.Errorf("qrCode: unknown recovery level %q", ToString(args[2]))
		}
		opts.Level = level
	}
	if len(args) > 3 {
		border, err := ToBool(args[3])
		if err != nil {
			return "", fmt.Errorf("qrCode border: %w", err)
		}
		opts.Border = border
	}
	return QRCode(ToString(args[0]), opts)
}

func barcodeHelper(args ...any) (string, error) {
	if len(args) < 1 || len(args) > 4 {
		return "", fmt.Errorf("barcode expects 1 to 4 arguments, got %d", len(args))
	}
	symbology := Code128
	if len(args) > 1 {
		s, ok := ParseSymbology(ToString(args[1]))
		if !ok {
			return "", fmt.Errorf("barcode: unknown symbology %q", ToString(args[1]))
		}
		symbology = s
	}
	opts := BarcodeOptions{}
	if len(args) > 2 {
		height, err := ToInt(args[2])
		if err != nil {
			return "", fmt.Errorf("barcode height: %w", err)
		}
		opts.Height = height
	}
	if len(args) > 3 {
		width, err := ToInt(args[3])
		if err != nil {
			return "", fmt.Errorf("barcode module width: %w", err)
		}
		opts.ModuleWidth = width
	}
	return Barcode(ToString(args[0]), symbology, opts)
}

func dataMatrixHelper(args ...any) (string, error) {
	if len(args) < 1 || len(args) > 3 {
		return "", fmt.Errorf("datamatrix expects 1 to 3 arguments, got %d", len(args))
	}
	opts := DataMatrixOptions{}
	if len(args) > 1 {
		cell, err := ToInt(args[1])
		if err != nil {
			return "", fmt.Errorf("datamatrix cell size: %w", err)
		}
		opts.CellSize = cell
	}
	if len(args) > 2 {
		border, err := ToBool(args[2])
		if err != nil {
			return "", fmt.Errorf("datamatrix border: %w", err)
		}
		opts.WithBorder = border
	}
	return DataMatrix(ToString(args[0]), opts)
}

func imageDataHelper(args ...any) (string, error) {
	switch len(args) {
	case 1:
		return FromFile(ToString(args[0]))
	case 3:
		w, err := ToInt(args[1])
		if err != nil {
			return "", fmt.Errorf("imageData width: %w", err)
		}
		h, err := ToInt(args[2])
		if err != nil {
			return "", fmt.Errorf("imageData height: %w", err)
		}
		return FromFileFit(ToString(args[0]), w, h)
	}
	return "", fmt.Errorf("imageData expects 1 or 3 arguments, got %d", len(args))
}

func hiroSquareHelper(args ...any) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("hiroSquare expects at most 1 argument, got %d", len(args))
	}
	width := ""
	if len(args) == 1 {
		width = ToString(args[0])
	}
	return HiroSquare(width), nil
}

func wrapHelper(args ...any) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("wrap expects 2 arguments, got %d", len(args))
	}
	width, err := ToInt(args[1])
	if err != nil {
		return "", fmt.Errorf("wrap width: %w", err)
	}
	return Wrap(ToString(args[0]), width), nil
}

func nowHelper(args ...any) (string, error) {
	if len(args) > 1 {
		return "", fmt.Errorf("now expects at most 1 argument, got %d", len(args))
	}
	layout := ""
	if len(args) == 1 {
		layout = ToString(args[0])
	}
	return Now(layout), nil
}

// ToString renders a record value as text. Whole floats print without an
// exponent so numeric identifiers decoded from JSON survive.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// ToInt converts numeric template arguments and numeric strings to int
func ToInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int32:
		return int(val), nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i), nil
		}
		f, err := val.Float64()
		return int(f), err
	case string:
		return strconv.Atoi(strings.TrimSpace(val))
	}
	return 0, fmt.Errorf("cannot use %T as integer", v)
}

// ToBool converts booleans, strconv.ParseBool strings and numbers. A
// non-zero number is true.
func ToBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(val))
	}
	n, err := ToInt(v)
	if err != nil {
		return false, fmt.Errorf("cannot use %T as boolean", v)
	}
	return n != 0, nil
}
