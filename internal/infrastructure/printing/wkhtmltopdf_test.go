package printing

import (
	"errors"
	"testing"

	"github.com/labelprint/backend/internal/domain/label"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWkhtmltopdfRenderer_BinaryNotFound(t *testing.T) {
	_, err := NewWkhtmltopdfRenderer(&WkhtmltopdfConfig{
		BinaryPath: "/nonexistent/wkhtmltopdf",
	})
	require.Error(t, err)

	var renderErr *label.RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, label.ErrCodeBinaryNotFound, renderErr.Code)
}

func TestBuildPaperSizeArgs(t *testing.T) {
	tests := []struct {
		name        string
		paperSize   label.PaperSize
		orientation label.Orientation
		expected    []string
	}{
		{
			name:        "A4 portrait",
			paperSize:   label.PaperSizeA4,
			orientation: label.OrientationPortrait,
			expected:    []string{"--page-size", "A4", "--orientation", "Portrait"},
		},
		{
			name:        "A6 landscape",
			paperSize:   label.PaperSizeA6,
			orientation: label.OrientationLandscape,
			expected:    []string{"--page-size", "A6", "--orientation", "Landscape"},
		},
		{
			name:        "css driven falls back to A4",
			paperSize:   label.PaperSizeCSSDriven,
			orientation: label.OrientationPortrait,
			expected:    []string{"--page-size", "A4", "--orientation", "Portrait"},
		},
		{
			name:      "shipping label",
			paperSize: label.PaperSizeLabel4x6,
			expected: []string{
				"--page-width", "101.6mm", "--page-height", "152.4mm",
				"--disable-smart-shrinking", "--orientation", "Portrait",
			},
		},
		{
			name:      "continuous tape has no orientation",
			paperSize: label.PaperSizeLabel62,
			expected:  []string{"--page-width", "62mm", "--page-height", "0", "--disable-smart-shrinking"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPaperSizeArgs(tt.paperSize, tt.orientation))
		})
	}
}

func TestWkhtmltopdfRenderer_BuildArgs(t *testing.T) {
	r := &WkhtmltopdfRenderer{config: &WkhtmltopdfConfig{DPI: 300, ImageQuality: 94}}

	t.Run("file base enables local access", func(t *testing.T) {
		args := r.buildArgs(&RenderRequest{
			HTML:      "x",
			PaperSize: label.PaperSizeA4,
			BaseURL:   "file:///srv/labels/",
			Title:     "Samples",
		}, "/tmp/in.html", "/tmp/out.pdf")

		assert.Contains(t, args, "--enable-local-file-access")
		assert.NotContains(t, args, "--disable-local-file-access")
		assert.Contains(t, args, "Samples")
		assert.Equal(t, []string{"/tmp/in.html", "/tmp/out.pdf"}, args[len(args)-2:])
	})

	t.Run("remote base keeps local access off", func(t *testing.T) {
		args := r.buildArgs(&RenderRequest{
			HTML:      "x",
			PaperSize: label.PaperSizeA4,
			BaseURL:   "https://cdn.example.com/",
		}, "in.html", "out.pdf")

		assert.Contains(t, args, "--disable-local-file-access")
		assert.Contains(t, args, "300")
	})

	t.Run("margins in millimeters", func(t *testing.T) {
		args := r.buildArgs(&RenderRequest{
			HTML:      "x",
			PaperSize: label.PaperSizeA4,
			Margins:   label.Margins{Top: 5, Right: 6, Bottom: 7, Left: 8},
		}, "in.html", "out.pdf")

		assert.Contains(t, args, "5mm")
		assert.Contains(t, args, "8mm")
	})
}
