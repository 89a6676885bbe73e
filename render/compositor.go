package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"

	"campus-idcards/layout"
	"campus-idcards/models"
	"campus-idcards/utils"
)

var (
	// ErrDesignNotImage means the uploaded design cannot be rasterized (a PDF, for instance)
	ErrDesignNotImage = errors.New("design asset is not an image")
	// ErrSurfaceTooLarge guards surface allocation against absurd design sizes
	ErrSurfaceTooLarge = errors.New("rendering surface too large")
)

// maxSurfacePixels caps a single surface at roughly 400 MB of NRGBA
const maxSurfacePixels = 100_000_000

var cardBackground = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Design is a decoded design asset
type Design struct {
	Image   image.Image
	Natural layout.Size
}

// DecodeDesign rasterizes the uploaded design. Non-image assets are refused.
func DecodeDesign(asset *models.DesignAsset) (*Design, error) {
	if !asset.IsImage() {
		return nil, ErrDesignNotImage
	}
	img, err := imaging.Decode(bytes.NewReader(asset.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode design: %w", err)
	}
	b := img.Bounds()
	return &Design{
		Image:   img,
		Natural: layout.Size{Width: float64(b.Dx()), Height: float64(b.Dy())},
	}, nil
}

// Resized returns the design scaled to size, used to render in preview space
func (d *Design) Resized(size layout.Size) *Design {
	w, h := int(size.Width+0.5), int(size.Height+0.5)
	if w == int(d.Natural.Width) && h == int(d.Natural.Height) {
		return d
	}
	return &Design{
		Image:   imaging.Resize(d.Image, w, h, imaging.Lanczos),
		Natural: layout.Size{Width: float64(w), Height: float64(h)},
	}
}

// Workspace is the off-screen surface one batch renders into. It is created by
// the caller, reused for every record and cleared before each one.
type Workspace struct {
	surface *image.NRGBA
	fonts   *FontRegistry
	faces   map[faceKey]font.Face
}

// NewWorkspace allocates a surface of the given size
func NewWorkspace(fonts *FontRegistry, size layout.Size) (*Workspace, error) {
	w, h := int(size.Width+0.5), int(size.Height+0.5)
	if w <= 0 || h <= 0 {
		return nil, layout.ErrNotMeasured
	}
	if w*h > maxSurfacePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrSurfaceTooLarge, w, h)
	}
	return &Workspace{
		surface: image.NewNRGBA(image.Rect(0, 0, w, h)),
		fonts:   fonts,
		faces:   make(map[faceKey]font.Face),
	}, nil
}

// Bounds of the surface
func (ws *Workspace) Bounds() image.Rectangle {
	return ws.surface.Bounds()
}

// Reset clears every pixel so nothing from the previous record leaks into the next
func (ws *Workspace) Reset() {
	clear(ws.surface.Pix)
}

// Close releases the faces and the surface
func (ws *Workspace) Close() error {
	var errs []error
	for key, face := range ws.faces {
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(ws.faces, key)
	}
	ws.surface = nil
	return errors.Join(errs...)
}

func (ws *Workspace) face(family string, size float64) (font.Face, error) {
	key := faceKey{family: family, size: size}
	if f, ok := ws.faces[key]; ok {
		return f, nil
	}
	f, err := ws.fonts.NewFace(family, size)
	if err != nil {
		return nil, err
	}
	ws.faces[key] = f
	return f, nil
}

// Compositor draws one card: design, photo and field overlays
type Compositor struct {
	fonts *FontRegistry
}

// NewCompositor creates a compositor drawing text with the given fonts
func NewCompositor(fonts *FontRegistry) *Compositor {
	return &Compositor{fonts: fonts}
}

// Fonts exposes the registry, for workspace allocation and text measurement
func (c *Compositor) Fonts() *FontRegistry {
	return c.fonts
}

// Card is everything needed to render one record
type Card struct {
	Design    *Design
	Transform layout.Transform
	Template  models.TemplateSnapshot
	Student   models.Student
	// Photo is the decoded passport photo, nil when absent or undecodable
	Photo image.Image
}

// Render composites card onto ws and returns the surface. The returned image
// aliases the workspace and is only valid until the next Render or Reset.
func (c *Compositor) Render(ws *Workspace, card Card) (image.Image, error) {
	if card.Design == nil {
		return nil, ErrDesignNotImage
	}
	ws.Reset()
	bounds := ws.Bounds()

	draw.Draw(ws.surface, bounds, image.NewUniform(cardBackground), image.Point{}, draw.Src)
	draw.Draw(ws.surface, bounds, card.Design.Image, card.Design.Image.Bounds().Min, draw.Over)

	if card.Photo != nil {
		c.drawPhoto(ws, card)
	}

	for _, overlay := range card.Template.Fields {
		if err := c.drawField(ws, card, overlay); err != nil {
			return nil, fmt.Errorf("failed to draw field %d (%s): %w", overlay.ID, overlay.Field, err)
		}
	}

	return ws.surface, nil
}

// drawPhoto fills the slot with the photo cropped to cover it, never distorted
func (c *Compositor) drawPhoto(ws *Workspace, card Card) {
	target := card.Transform.Rect(card.Template.Photo.Rect()).Pixels()
	if target.Empty() {
		return
	}
	filled := imaging.Fill(card.Photo, target.Dx(), target.Dy(), imaging.Center, imaging.Lanczos)
	draw.Draw(ws.surface, target, filled, image.Point{}, draw.Over)
}

// FieldPlacement computes where an overlay's value lands for a given record
func (c *Compositor) FieldPlacement(ws *Workspace, card Card, overlay models.FieldOverlay) (TextPlacement, float64, error) {
	size := card.Transform.FontSize(float64(overlay.FontSize))
	face, err := ws.face(card.Template.FontFamily, size)
	if err != nil {
		return TextPlacement{}, 0, err
	}

	origin := card.Transform.Point(overlay.Position)
	maxWidth := float64(ws.Bounds().Dx()) - origin.X
	height := card.Transform.Length(models.FieldBandHeight)
	padding := float64(models.FieldBandPadding)

	value := card.Student.FieldValue(overlay.Field)
	return placeText(face, value, origin, maxWidth, height, padding), size, nil
}

func (c *Compositor) drawField(ws *Workspace, card Card, overlay models.FieldOverlay) error {
	placement, size, err := c.FieldPlacement(ws, card, overlay)
	if err != nil {
		return err
	}
	if placement.Text == "" {
		return nil
	}

	col, err := utils.ParseHexColor(overlay.FontColor)
	if err != nil {
		log.Printf("⚠️  Field %d has invalid color %q, using default", overlay.ID, overlay.FontColor)
		col, _ = utils.ParseHexColor(models.DefaultFontColor)
	}

	face, err := ws.face(card.Template.FontFamily, size)
	if err != nil {
		return err
	}
	// the band clips the glyphs, like an overflow-hidden box
	clip := placement.Band.Pixels().Intersect(ws.Bounds())
	d := &font.Drawer{
		Dst:  ws.surface.SubImage(clip).(*image.NRGBA),
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  placement.Dot,
	}
	d.DrawString(placement.Text)
	return nil
}
