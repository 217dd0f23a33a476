package imagedata

import (
	"image"
	"image/color"

	"github.com/boombuler/barcode/datamatrix"
	"github.com/disintegration/imaging"
	"github.com/labelprint/backend/internal/domain/label"
)

const (
	defaultCellSize = 2
	quietZoneCells  = 2
)

// DataMatrixOptions controls data matrix rendering
type DataMatrixOptions struct {
	// CellSize is the size in pixels of one matrix cell (default: 2)
	CellSize int
	// WithBorder surrounds the symbol with a white quiet zone
	WithBorder bool
}

// DataMatrix encodes data as an ECC200 data matrix PNG data URI.
// Without a border the image is cropped to the symbol itself.
func DataMatrix(data string, opts DataMatrixOptions) (string, error) {
	if data == "" {
		return "", label.NewEncodingError("datamatrix", data, errEmptyInput)
	}

	code, err := datamatrix.Encode(data)
	if err != nil {
		return "", label.NewEncodingError("datamatrix", data, err)
	}

	cell := opts.CellSize
	if cell <= 0 {
		cell = defaultCellSize
	}

	b := code.Bounds()
	img := imaging.Resize(code, b.Dx()*cell, b.Dy()*cell, imaging.NearestNeighbor)
	if opts.WithBorder {
		pad := quietZoneCells * cell
		canvas := imaging.New(img.Bounds().Dx()+2*pad, img.Bounds().Dy()+2*pad, color.White)
		img = imaging.Paste(canvas, img, image.Pt(pad, pad))
	}

	uri, err := FromImage(img)
	if err != nil {
		return "", label.NewEncodingError("datamatrix", data, err)
	}
	return uri, nil
}
