package label

// PaperSize represents the sheet or sticker stock labels are printed on
type PaperSize string

const (
	PaperSizeA4        PaperSize = "A4"         // 210mm x 297mm
	PaperSizeA5        PaperSize = "A5"         // 148mm x 210mm
	PaperSizeA6        PaperSize = "A6"         // 105mm x 148mm
	PaperSizeLetter    PaperSize = "LETTER"     // 215.9mm x 279.4mm
	PaperSizeLabel4x6  PaperSize = "LABEL_4X6"  // 101.6mm x 152.4mm shipping label
	PaperSizeLabel62   PaperSize = "LABEL_62"   // 62mm continuous tape
	PaperSizeLabel57   PaperSize = "LABEL_57"   // 57mm x 32mm sticker
	PaperSizeCSSDriven PaperSize = "CSS_DRIVEN" // size taken from the stylesheet @page rule
)

// IsValid checks if the PaperSize is a valid value
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeA5, PaperSizeA6, PaperSizeLetter,
		PaperSizeLabel4x6, PaperSizeLabel62, PaperSizeLabel57, PaperSizeCSSDriven:
		return true
	}
	return false
}

// String returns the string representation of PaperSize
func (p PaperSize) String() string {
	return string(p)
}

// Dimensions returns the paper dimensions in millimeters (width, height).
// Continuous tape reports a zero height.
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperSizeA4:
		return 210, 297
	case PaperSizeA5:
		return 148, 210
	case PaperSizeA6:
		return 105, 148
	case PaperSizeLetter:
		return 215.9, 279.4
	case PaperSizeLabel4x6:
		return 101.6, 152.4
	case PaperSizeLabel62:
		return 62, 0
	case PaperSizeLabel57:
		return 57, 32
	default:
		return 210, 297
	}
}

// IsContinuous returns true if this is continuous tape with no fixed height
func (p PaperSize) IsContinuous() bool {
	return p == PaperSizeLabel62
}

// AllPaperSizes returns all valid PaperSize values
func AllPaperSizes() []PaperSize {
	return []PaperSize{
		PaperSizeA4, PaperSizeA5, PaperSizeA6, PaperSizeLetter,
		PaperSizeLabel4x6, PaperSizeLabel62, PaperSizeLabel57, PaperSizeCSSDriven,
	}
}

// Orientation represents the page orientation for printing
type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// IsValid checks if the Orientation is a valid value
func (o Orientation) IsValid() bool {
	switch o {
	case OrientationPortrait, OrientationLandscape:
		return true
	}
	return false
}

// String returns the string representation of Orientation
func (o Orientation) String() string {
	return string(o)
}

// Margins represents the page margins in millimeters
type Margins struct {
	Top    int `json:"top" mapstructure:"top"`
	Right  int `json:"right" mapstructure:"right"`
	Bottom int `json:"bottom" mapstructure:"bottom"`
	Left   int `json:"left" mapstructure:"left"`
}

// NewMargins creates a new Margins value object
func NewMargins(top, right, bottom, left int) (Margins, error) {
	if top < 0 || right < 0 || bottom < 0 || left < 0 {
		return Margins{}, NewConfigurationError("margins", "margins cannot be negative", nil)
	}
	if top > 100 || right > 100 || bottom > 100 || left > 100 {
		return Margins{}, NewConfigurationError("margins", "margins cannot exceed 100mm", nil)
	}
	return Margins{
		Top:    top,
		Right:  right,
		Bottom: bottom,
		Left:   left,
	}, nil
}

// NoMargins returns zero margins; sticker stock is usually printed edge to edge
func NoMargins() Margins {
	return Margins{}
}

// IsZero returns true if all margins are zero
func (m Margins) IsZero() bool {
	return m.Top == 0 && m.Right == 0 && m.Bottom == 0 && m.Left == 0
}
