package pdfutils

import (
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mgmeyers/unipdf/v3/core"
	"github.com/pkg/errors"
)

func PDFObjToColor(c core.PdfObject) (colorful.Color, bool) {
	clr, ok := GetFloats(c)
	if !ok {
		return colorful.Color{}, false
	}

	switch len(clr) {
	case 1:
		return colorful.Color{R: clr[0], G: clr[0], B: clr[0]}, true
	case 3:
		return colorful.Color{R: clr[0], G: clr[1], B: clr[2]}, true
	case 4:
		// CMYK
		k := 1 - clr[3]
		return colorful.Color{R: (1 - clr[0]) * k, G: (1 - clr[1]) * k, B: (1 - clr[2]) * k}, true
	}

	return colorful.Color{}, false
}

func PDFObjToHex(c core.PdfObject) string {
	color, ok := PDFObjToColor(c)
	if !ok {
		return ""
	}

	return color.Clamped().Hex()
}

// HexToPDFObj converts a #rrggbb color to an RGB color array.
func HexToPDFObj(hex string) (*core.PdfObjectArray, error) {
	color, err := colorful.Hex(hex)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid color %q", hex)
	}

	return core.MakeArrayFromFloats([]float64{color.R, color.G, color.B}), nil
}

// ColorCategory names the hue family of a #rrggbb color.
func ColorCategory(hex string) string {
	color, err := colorful.Hex(hex)
	if err != nil {
		return ""
	}

	return colorCategory(color)
}

func colorCategory(color colorful.Color) string {
	h, s, l := color.Hsl()

	// define color category based on HSL
	if l < 0.12 {
		return "Black"
	}
	if l > 0.98 {
		return "White"
	}
	if s < 0.2 {
		return "Gray"
	}
	if h < 15 {
		return "Red"
	}
	if h < 45 {
		return "Orange"
	}
	if h < 65 {
		return "Yellow"
	}
	if h < 170 {
		return "Green"
	}
	if h < 190 {
		return "Cyan"
	}
	if h < 263 {
		return "Blue"
	}
	if h < 280 {
		return "Purple"
	}
	if h < 335 {
		return "Magenta"
	}
	return "Red"
}
