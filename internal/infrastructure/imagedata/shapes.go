package imagedata

import (
	"fmt"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

const hiroSquareSVG = `<svg height="%[1]s" width="%[1]s" version="1.1" viewBox="0 0 4 4" xmlns="http://www.w3.org/2000/svg">` +
	`<rect x="0" y="0" width="4" height="4" fill="#000" stroke-width="0"/>` +
	`<rect x="1" y="1" width="2" height="2" fill="#fff" stroke-width="0"/>` +
	`</svg>`

// HiroSquare returns the square fiducial marker used by AR tracking
// software as an SVG data URI
func HiroSquare(width string) string {
	if width == "" {
		width = "100%"
	}
	svg := fmt.Sprintf(hiroSquareSVG, width)
	return Encode("image/svg+xml", []byte(svg))
}

// Wrap breaks text into lines of at most width display cells on word
// boundaries. Runs of whitespace collapse to one space and words wider than
// width are split.
func Wrap(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if width <= 0 {
		return text
	}
	return wrap.String(wordwrap.String(text, width), width)
}

// Now formats the current time. An empty layout uses "2006-01-02 15:04".
func Now(layout string) string {
	if layout == "" {
		layout = "2006-01-02 15:04"
	}
	return time.Now().Format(layout)
}
