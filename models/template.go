package models

import (
	"strings"

	"campus-idcards/layout"
)

// Overlay placement defaults and bounds, all in preview pixels
const (
	DefaultFontSize  = 16
	MinFontSize      = 10
	MaxFontSize      = 48
	DefaultFontColor = "#222"

	MinPhotoSize = 32
	MaxPhotoSize = 200

	FieldBandHeight  = 32 // height of the band a field value is centered in
	FieldBandPadding = 8  // horizontal padding on each side of the value
	FieldSpacing     = 40 // vertical offset between a new field and the lowest one
)

// PhotoOverlay is the single photo slot of a template
type PhotoOverlay struct {
	Position layout.Point `json:"position"`
	Size     layout.Size  `json:"size"`
}

// Rect returns the slot as a preview-space box
func (p PhotoOverlay) Rect() layout.Rect {
	return layout.Rect{X: p.Position.X, Y: p.Position.Y, Width: p.Size.Width, Height: p.Size.Height}
}

// DefaultPhotoOverlay is the slot placement before the operator touches it
func DefaultPhotoOverlay() PhotoOverlay {
	return PhotoOverlay{
		Position: layout.Point{X: 8, Y: 8},
		Size:     layout.Size{Width: 64, Height: 64},
	}
}

// FieldOverlay binds one student field to a position on the card
type FieldOverlay struct {
	ID        int          `json:"id"`
	Field     FieldKey     `json:"field"`
	Position  layout.Point `json:"position"`
	FontSize  int          `json:"fontSize"`
	FontColor string       `json:"fontColor"`
}

// FieldChanges is a partial update; nil members are left untouched
type FieldChanges struct {
	Field     *FieldKey     `json:"field,omitempty"`
	Position  *layout.Point `json:"position,omitempty"`
	FontSize  *int          `json:"fontSize,omitempty"`
	FontColor *string       `json:"fontColor,omitempty"`
}

// TemplateSnapshot is an immutable copy of the overlay model taken for rendering.
// Fields are kept in insertion order, which is also paint order.
type TemplateSnapshot struct {
	Photo      PhotoOverlay   `json:"photo"`
	Fields     []FieldOverlay `json:"fields"`
	FontFamily string         `json:"fontFamily"`
}

// DesignAsset is the uploaded background image. Sessions keep only the
// metadata and Hash; Data lives in the design store.
type DesignAsset struct {
	FileName    string      `json:"fileName"`
	ContentType string      `json:"contentType"`
	Hash        string      `json:"hash,omitempty"`
	Data        []byte      `json:"-"`
	Natural     layout.Size `json:"natural"`
}

// IsImage reports whether the asset can be rasterized by the compositor
func (d *DesignAsset) IsImage() bool {
	return d != nil && strings.HasPrefix(strings.ToLower(d.ContentType), "image/")
}
