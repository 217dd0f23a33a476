package imagedata

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

const dataURIPrefix = "data:"

// Encode wraps raw bytes into a data URI with the given MIME type
func Encode(mimeType string, data []byte) string {
	return dataURIPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI reports whether s looks like an embeddable image string
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, dataURIPrefix) && strings.Contains(s, ";base64,")
}

// Decode splits a data URI into its MIME type and payload
func Decode(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return "", nil, fmt.Errorf("invalid data URI: missing %q prefix", dataURIPrefix)
	}
	header, payload, ok := strings.Cut(uri[len(dataURIPrefix):], ",")
	if !ok {
		return "", nil, fmt.Errorf("invalid data URI format")
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid data URI payload: %w", err)
	}
	return mimeType, data, nil
}

// FromImage encodes img as PNG and wraps it in a data URI
func FromImage(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return Encode("image/png", buf.Bytes()), nil
}

// FromBytes sniffs the MIME type of data and wraps it in a data URI
func FromBytes(data []byte) string {
	return Encode(mediaType(mimetype.Detect(data)), data)
}

// FromFile reads an image file and wraps it in a data URI.
// The MIME type comes from the file content, not its extension.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", path, err)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mt.String())
	}
	return Encode(mediaType(mt), data), nil
}

// FromFileFit reads a raster image, downscales it to fit within width x height
// and returns it as a PNG data URI. Large photos embedded in every label
// otherwise bloat the PDF.
func FromFileFit(path string, width, height int) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", path, err)
	}
	if width > 0 && height > 0 {
		img = imaging.Fit(img, width, height, imaging.Lanczos)
	}
	return FromImage(img)
}

// mediaType drops MIME parameters such as "; charset=utf-8"
func mediaType(mt *mimetype.MIME) string {
	s, _, _ := strings.Cut(mt.String(), ";")
	return strings.TrimSpace(s)
}
