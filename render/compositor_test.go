package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-idcards/layout"
	"campus-idcards/models"
)

var designColor = color.NRGBA{R: 200, G: 220, B: 255, A: 255}

func designAsset(t *testing.T, w, h int) *models.DesignAsset {
	t.Helper()
	img := imaging.New(w, h, designColor)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &models.DesignAsset{FileName: "design.png", ContentType: "image/png", Data: buf.Bytes()}
}

func decodedDesign(t *testing.T, w, h int) *Design {
	t.Helper()
	d, err := DecodeDesign(designAsset(t, w, h))
	require.NoError(t, err)
	return d
}

func workspaceFor(t *testing.T, d *Design) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(NewFontRegistry(), d.Natural)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 < 120 && g>>8 < 120 && b>>8 < 120
}

func TestDecodeDesign_RefusesNonImage(t *testing.T) {
	_, err := DecodeDesign(&models.DesignAsset{ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	assert.ErrorIs(t, err, ErrDesignNotImage)

	_, err = DecodeDesign(nil)
	assert.ErrorIs(t, err, ErrDesignNotImage)
}

func TestDecodeDesign_NaturalSize(t *testing.T) {
	d := decodedDesign(t, 320, 200)
	assert.Equal(t, layout.Size{Width: 320, Height: 200}, d.Natural)
}

func TestNewWorkspace_Guards(t *testing.T) {
	_, err := NewWorkspace(NewFontRegistry(), layout.Size{})
	assert.ErrorIs(t, err, layout.ErrNotMeasured)

	_, err = NewWorkspace(NewFontRegistry(), layout.Size{Width: 20000, Height: 20000})
	assert.ErrorIs(t, err, ErrSurfaceTooLarge)
}

// Natural 1000x1000, preview 500x500: a 16px field at (8, 80) lands at
// (16, 160) with a 32px font.
func TestRender_ScaledFieldPlacement(t *testing.T) {
	design := decodedDesign(t, 1000, 1000)
	ws := workspaceFor(t, design)
	tr, err := layout.NewTransform(design.Natural, layout.Size{Width: 500, Height: 500})
	require.NoError(t, err)

	overlay := models.FieldOverlay{
		ID:        0,
		Field:     models.FieldFullName,
		Position:  layout.Point{X: 8, Y: 80},
		FontSize:  16,
		FontColor: "#222",
	}
	card := Card{
		Design:    design,
		Transform: tr,
		Template:  models.TemplateSnapshot{Photo: models.DefaultPhotoOverlay(), Fields: []models.FieldOverlay{overlay}, FontFamily: DefaultFontFamily},
		Student:   models.Student{FullName: "Asha Rao"},
	}

	placement, size, err := NewCompositor(ws.fonts).FieldPlacement(ws, card, overlay)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", placement.Text)
	assert.InDelta(t, 32.0, size, 1e-9)
	assert.InDelta(t, 16.0, placement.Band.X, 1e-9)
	assert.InDelta(t, 160.0, placement.Band.Y, 1e-9)
	assert.InDelta(t, 64.0, placement.Band.Height, 1e-9)

	// text is centered in its band
	textWidth := ws.fonts.MeasureText(DefaultFontFamily, 32, "Asha Rao")
	left := fixedToFloat(placement.Dot.X) - placement.Band.X
	right := placement.Band.X + placement.Band.Width - (fixedToFloat(placement.Dot.X) + textWidth)
	assert.InDelta(t, left, right, 1.0)

	// band padding stays 8px at natural resolution whatever the scale
	assert.InDelta(t, textWidth+2*models.FieldBandPadding, placement.Band.Width, 0.5)

	out, err := NewCompositor(ws.fonts).Render(ws, card)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 1000), out.Bounds())

	band := placement.Band.Pixels()
	darkInside, darkOutside := 0, 0
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x += 2 {
			if !isDark(out.At(x, y)) {
				continue
			}
			if image.Pt(x, y).In(band) {
				darkInside++
			} else {
				darkOutside++
			}
		}
	}
	assert.Greater(t, darkInside, 0, "text should be drawn inside its band")
	assert.Zero(t, darkOutside, "nothing should be drawn outside the band")
}

func TestRender_MissingValueRendersNothing(t *testing.T) {
	design := decodedDesign(t, 200, 120)
	ws := workspaceFor(t, design)

	card := Card{
		Design:    design,
		Transform: layout.Identity(),
		Template: models.TemplateSnapshot{Fields: []models.FieldOverlay{
			{ID: 0, Field: models.FieldAddress, Position: layout.Point{X: 8, Y: 8}, FontSize: 16, FontColor: "#000"},
		}},
		Student: models.Student{FullName: "No Address"},
	}
	out, err := NewCompositor(ws.fonts).Render(ws, card)
	require.NoError(t, err)

	for y := 0; y < 120; y++ {
		for x := 0; x < 200; x++ {
			require.Equal(t, designColor, out.(*image.NRGBA).NRGBAAt(x, y))
		}
	}
}

func TestRender_TruncatesWithEllipsis(t *testing.T) {
	design := decodedDesign(t, 200, 100)
	ws := workspaceFor(t, design)

	overlay := models.FieldOverlay{Field: models.FieldAddress, Position: layout.Point{X: 100, Y: 10}, FontSize: 16, FontColor: "#222"}
	card := Card{
		Design:    design,
		Transform: layout.Identity(),
		Template:  models.TemplateSnapshot{Fields: []models.FieldOverlay{overlay}},
		Student:   models.Student{Address: "42 Long Avenue, Northern District, Springfield"},
	}

	placement, _, err := NewCompositor(ws.fonts).FieldPlacement(ws, card, overlay)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(placement.Text, ellipsis), placement.Text)
	assert.InDelta(t, 100.0, placement.Band.Width, 1e-9, "band stops at the right edge")
	assert.LessOrEqual(t, ws.fonts.MeasureText("", 16, placement.Text), 100.0-2*models.FieldBandPadding)
}

func TestRender_PhotoCoversSlotWithoutDistortion(t *testing.T) {
	design := decodedDesign(t, 200, 200)
	ws := workspaceFor(t, design)

	// 100x50: green | red | blue quarters; a centered square crop is all red
	photo := imaging.New(100, 50, color.NRGBA{R: 255, A: 255})
	for y := 0; y < 50; y++ {
		for x := 0; x < 25; x++ {
			photo.SetNRGBA(x, y, color.NRGBA{G: 255, A: 255})
			photo.SetNRGBA(99-x, y, color.NRGBA{B: 255, A: 255})
		}
	}

	card := Card{
		Design:    design,
		Transform: layout.Identity(),
		Template:  models.TemplateSnapshot{Photo: models.DefaultPhotoOverlay()},
		Photo:     photo,
	}
	out, err := NewCompositor(ws.fonts).Render(ws, card)
	require.NoError(t, err)
	img := out.(*image.NRGBA)

	for _, p := range []image.Point{{20, 20}, {40, 40}, {60, 60}, {20, 60}, {60, 20}} {
		c := img.NRGBAAt(p.X, p.Y)
		assert.Greater(t, int(c.R), 200, "pixel %v should be red, got %v", p, c)
		assert.Less(t, int(c.G), 60, "pixel %v should be red, got %v", p, c)
		assert.Less(t, int(c.B), 60, "pixel %v should be red, got %v", p, c)
	}
	assert.Equal(t, designColor, img.NRGBAAt(100, 100), "outside the slot stays design")
}

func TestRender_WorkspaceClearedBetweenRecords(t *testing.T) {
	design := decodedDesign(t, 200, 200)
	ws := workspaceFor(t, design)
	comp := NewCompositor(ws.fonts)

	template := models.TemplateSnapshot{Photo: models.DefaultPhotoOverlay()}
	withPhoto := Card{Design: design, Transform: layout.Identity(), Template: template, Photo: imaging.New(10, 10, color.NRGBA{R: 255, A: 255})}
	withoutPhoto := Card{Design: design, Transform: layout.Identity(), Template: template}

	out, err := comp.Render(ws, withPhoto)
	require.NoError(t, err)
	assert.NotEqual(t, designColor, out.(*image.NRGBA).NRGBAAt(40, 40))

	out, err = comp.Render(ws, withoutPhoto)
	require.NoError(t, err)
	assert.Equal(t, designColor, out.(*image.NRGBA).NRGBAAt(40, 40))
}

func TestDesign_Resized(t *testing.T) {
	d := decodedDesign(t, 1000, 500)
	small := d.Resized(layout.Size{Width: 500, Height: 250})
	assert.Equal(t, layout.Size{Width: 500, Height: 250}, small.Natural)
	assert.Equal(t, 500, small.Image.Bounds().Dx())
	assert.Same(t, d, d.Resized(d.Natural))
}

func TestFontRegistry_FallsBackToDefault(t *testing.T) {
	fonts := NewFontRegistry()
	assert.True(t, fonts.Has(DefaultFontFamily))
	assert.False(t, fonts.Has("DM Sans Variable"))

	want := fonts.MeasureText(DefaultFontFamily, 20, "Roll 17")
	assert.Greater(t, want, 0.0)
	assert.InDelta(t, want, fonts.MeasureText("DM Sans Variable", 20, "Roll 17"), 1e-9)
	assert.Zero(t, fonts.MeasureText(DefaultFontFamily, 20, ""))
}
