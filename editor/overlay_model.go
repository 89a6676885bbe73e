package editor

import (
	"errors"
	"fmt"
	"math"

	"campus-idcards/layout"
	"campus-idcards/models"
	"campus-idcards/utils"
)

var (
	ErrOverlayNotFound    = errors.New("overlay not found")
	ErrFontSizeOutOfRange = fmt.Errorf("font size must be between %d and %d", models.MinFontSize, models.MaxFontSize)
	ErrInvalidColor       = errors.New("invalid font color")
	ErrInvalidField       = errors.New("invalid field binding")
)

// OverlayModel is the editable layout of a card: one photo slot and an ordered,
// never empty list of field overlays. All positions are in preview space.
type OverlayModel struct {
	Photo  models.PhotoOverlay   `json:"photo"`
	Fields []models.FieldOverlay `json:"fields"`
	NextID int                   `json:"nextId"`
}

// NewOverlayModel starts with the default photo slot and one full-name field
func NewOverlayModel() *OverlayModel {
	m := &OverlayModel{Photo: models.DefaultPhotoOverlay()}
	m.AddField()
	return m
}

func defaultField(id int, y float64) models.FieldOverlay {
	return models.FieldOverlay{
		ID:        id,
		Field:     models.FieldFullName,
		Position:  layout.Point{X: 8, Y: y},
		FontSize:  models.DefaultFontSize,
		FontColor: models.DefaultFontColor,
	}
}

// AddField appends a full-name overlay placed below the lowest existing one and
// returns its id. The offset is a visual hint only; overlap is still possible.
func (m *OverlayModel) AddField() int {
	y := 80.0
	if len(m.Fields) > 0 {
		lowest := math.Inf(-1)
		for _, f := range m.Fields {
			lowest = math.Max(lowest, f.Position.Y)
		}
		y = lowest + models.FieldSpacing
	}

	id := m.NextID
	m.NextID++
	m.Fields = append(m.Fields, defaultField(id, y))
	return id
}

// RemoveField deletes an overlay. Removing the last one is refused, as is an
// unknown id; both return false and leave the model untouched.
func (m *OverlayModel) RemoveField(id int) bool {
	if len(m.Fields) <= 1 {
		return false
	}
	i := m.index(id)
	if i < 0 {
		return false
	}
	m.Fields = append(m.Fields[:i:i], m.Fields[i+1:]...)
	return true
}

// Field returns a copy of the overlay with the given id
func (m *OverlayModel) Field(id int) (models.FieldOverlay, bool) {
	i := m.index(id)
	if i < 0 {
		return models.FieldOverlay{}, false
	}
	return m.Fields[i], true
}

// UpdateField merges changes into an overlay. The update is validated as a
// whole and applied all-or-nothing; applying the same changes twice is a no-op.
func (m *OverlayModel) UpdateField(id int, changes models.FieldChanges) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrOverlayNotFound, id)
	}
	if err := validateChanges(changes); err != nil {
		return err
	}

	f := m.Fields[i]
	if changes.Field != nil {
		f.Field = *changes.Field
	}
	if changes.Position != nil {
		f.Position = *changes.Position
	}
	if changes.FontSize != nil {
		f.FontSize = *changes.FontSize
	}
	if changes.FontColor != nil {
		f.FontColor = *changes.FontColor
	}
	m.Fields[i] = f
	return nil
}

func validateChanges(c models.FieldChanges) error {
	if c.Field != nil {
		if _, err := models.ParseFieldKey(string(*c.Field)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
	}
	if c.FontSize != nil && (*c.FontSize < models.MinFontSize || *c.FontSize > models.MaxFontSize) {
		return ErrFontSizeOutOfRange
	}
	if c.FontColor != nil {
		if _, err := utils.ParseHexColor(*c.FontColor); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidColor, err)
		}
	}
	return nil
}

// UpdatePhoto replaces the photo slot placement; the size is clamped to the
// allowed range.
func (m *OverlayModel) UpdatePhoto(position layout.Point, size layout.Size) {
	m.Photo = models.PhotoOverlay{
		Position: position,
		Size:     ClampPhotoSize(size),
	}
}

// ClampPhotoSize keeps each side within MinPhotoSize..MaxPhotoSize
func ClampPhotoSize(s layout.Size) layout.Size {
	return layout.Size{
		Width:  math.Max(models.MinPhotoSize, math.Min(s.Width, models.MaxPhotoSize)),
		Height: math.Max(models.MinPhotoSize, math.Min(s.Height, models.MaxPhotoSize)),
	}
}

// Snapshot returns a deep copy for rendering
func (m *OverlayModel) Snapshot(fontFamily string) models.TemplateSnapshot {
	fields := make([]models.FieldOverlay, len(m.Fields))
	copy(fields, m.Fields)
	return models.TemplateSnapshot{
		Photo:      m.Photo,
		Fields:     fields,
		FontFamily: fontFamily,
	}
}

func (m *OverlayModel) index(id int) int {
	for i, f := range m.Fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}
