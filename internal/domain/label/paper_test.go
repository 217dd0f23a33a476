package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperSize_IsValid(t *testing.T) {
	for _, p := range AllPaperSizes() {
		assert.True(t, p.IsValid(), p.String())
	}
	assert.False(t, PaperSize("").IsValid())
	assert.False(t, PaperSize("B5").IsValid())
}

func TestPaperSize_Dimensions(t *testing.T) {
	tests := []struct {
		size   PaperSize
		width  float64
		height float64
	}{
		{PaperSizeA4, 210, 297},
		{PaperSizeA6, 105, 148},
		{PaperSizeLetter, 215.9, 279.4},
		{PaperSizeLabel4x6, 101.6, 152.4},
		{PaperSizeLabel62, 62, 0},
		{PaperSize("unknown"), 210, 297},
	}

	for _, tt := range tests {
		t.Run(tt.size.String(), func(t *testing.T) {
			w, h := tt.size.Dimensions()
			assert.InDelta(t, tt.width, w, 0.001)
			assert.InDelta(t, tt.height, h, 0.001)
		})
	}

	assert.True(t, PaperSizeLabel62.IsContinuous())
	assert.False(t, PaperSizeA4.IsContinuous())
}

func TestOrientation_IsValid(t *testing.T) {
	assert.True(t, OrientationPortrait.IsValid())
	assert.True(t, OrientationLandscape.IsValid())
	assert.False(t, Orientation("DIAGONAL").IsValid())
}

func TestNewMargins(t *testing.T) {
	tests := []struct {
		name                     string
		top, right, bottom, left int
		expectError              bool
	}{
		{"valid margins", 10, 10, 10, 10, false},
		{"zero margins", 0, 0, 0, 0, false},
		{"max margins", 100, 100, 100, 100, false},
		{"negative top", -1, 10, 10, 10, true},
		{"negative left", 10, 10, 10, -1, true},
		{"exceeds max right", 10, 101, 10, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			margins, err := NewMargins(tt.top, tt.right, tt.bottom, tt.left)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "cannot")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.top, margins.Top)
			assert.Equal(t, tt.left, margins.Left)
		})
	}

	assert.True(t, NoMargins().IsZero())
	assert.False(t, Margins{Top: 1}.IsZero())
}
