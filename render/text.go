package render

import (
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"campus-idcards/layout"
)

const ellipsis = "…"

// TextPlacement is where and how one field value lands on the surface
type TextPlacement struct {
	Text string
	// Band is the box the text is centered in: it shrinks to the text plus
	// padding and never extends past the right edge of the surface.
	Band layout.Rect
	Dot  fixed.Point26_6
}

// truncateToWidth shortens s rune by rune until s+"…" fits in max.
// Text that already fits is returned unchanged.
func truncateToWidth(face font.Face, s string, max fixed.Int26_6) string {
	if font.MeasureString(face, s) <= max {
		return s
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := string(runes[:n]) + ellipsis
		if font.MeasureString(face, candidate) <= max {
			return candidate
		}
	}
	if font.MeasureString(face, ellipsis) <= max {
		return ellipsis
	}
	return ""
}

// placeText lays a single line out inside a band anchored at origin.
// maxWidth is the room between origin.X and the right edge of the surface.
func placeText(face font.Face, value string, origin layout.Point, maxWidth, height, padding float64) TextPlacement {
	band := layout.Rect{X: origin.X, Y: origin.Y, Height: height}
	if value == "" || maxWidth <= 0 {
		return TextPlacement{Band: band}
	}

	natural := fixedToFloat(font.MeasureString(face, value))
	band.Width = math.Min(natural+2*padding, maxWidth)

	text := truncateToWidth(face, value, floatToFixed(math.Max(band.Width-2*padding, 0)))
	if text == "" {
		return TextPlacement{Band: band}
	}
	width := fixedToFloat(font.MeasureString(face, text))

	metrics := face.Metrics()
	ascent := fixedToFloat(metrics.Ascent)
	descent := fixedToFloat(metrics.Descent)

	x := band.X + (band.Width-width)/2
	y := band.Y + (band.Height-(ascent+descent))/2 + ascent

	return TextPlacement{
		Text: text,
		Band: band,
		Dot:  fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)},
	}
}
