package editor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"campus-idcards/layout"
	"campus-idcards/models"
	"campus-idcards/render"
)

var (
	ErrNoDesign          = errors.New("no design loaded")
	ErrUnsupportedDesign = errors.New("design must be an image or a PDF")
	ErrNoRecords         = errors.New("no records selected")
	ErrNoGesture         = errors.New("no gesture in progress")
	ErrMenuClosed        = errors.New("field menu is not open")
	ErrPhotoHidden       = errors.New("photo slot is not shown for the current record")
	ErrInvalidHandle     = errors.New("invalid resize handle")
)

const (
	// DoubleActivationWindow is how close two activations of the same field must
	// be to open its menu
	DoubleActivationWindow = 400 * time.Millisecond

	// minFieldBoxWidth keeps empty fields grabbable
	minFieldBoxWidth = 40
)

// TextMeasurer reports the advance width of a single line of text
type TextMeasurer interface {
	MeasureText(family string, size float64, text string) float64
}

// TargetKind tells photo and field overlays apart
type TargetKind string

const (
	TargetPhoto TargetKind = "photo"
	TargetField TargetKind = "field"
)

// Target is an overlay under the pointer
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   int        `json:"id"`
}

// Handle is one of the eight photo resize handles
type Handle string

const (
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
	HandleNE Handle = "ne"
	HandleNW Handle = "nw"
	HandleSE Handle = "se"
	HandleSW Handle = "sw"
)

// ParseHandle validates a handle name
func ParseHandle(raw string) (Handle, error) {
	h := Handle(strings.ToLower(strings.TrimSpace(raw)))
	switch h {
	case HandleN, HandleS, HandleE, HandleW, HandleNE, HandleNW, HandleSE, HandleSW:
		return h, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidHandle, raw)
}

// DragState is a drag in progress. Box is the live position; the model is only
// written when the drag ends.
type DragState struct {
	Target Target       `json:"target"`
	Grab   layout.Point `json:"grab"`
	Box    layout.Rect  `json:"box"`
}

// ResizeState is a photo resize in progress
type ResizeState struct {
	Handle Handle       `json:"handle"`
	Start  layout.Rect  `json:"start"`
	Anchor layout.Point `json:"anchor"`
}

// MenuState is the inline style menu of one field overlay
type MenuState struct {
	Open    bool `json:"open"`
	FieldID int  `json:"fieldId"`
}

// Activation is the last single activation, kept to detect a double one
type Activation struct {
	FieldID int       `json:"fieldId"`
	At      time.Time `json:"at"`
}

// CanvasState is everything the editor keeps between two interactions.
// It is plain data so a session store can serialize it.
type CanvasState struct {
	Design     *models.DesignAsset `json:"design,omitempty"`
	Preview    layout.Size         `json:"preview"`
	Overlays   *OverlayModel       `json:"overlays"`
	FontFamily string              `json:"fontFamily"`
	Records    []models.Student    `json:"records"`

	Drag           *DragState   `json:"drag,omitempty"`
	Resize         *ResizeState `json:"resize,omitempty"`
	Menu           MenuState    `json:"menu"`
	LastActivation *Activation  `json:"lastActivation,omitempty"`
}

// NewCanvasState returns an empty editor with the default overlays
func NewCanvasState() *CanvasState {
	return &CanvasState{
		Overlays:   NewOverlayModel(),
		FontFamily: render.DefaultFontFamily,
	}
}

// Canvas applies pointer input and menu actions to a CanvasState
type Canvas struct {
	State *CanvasState
	fonts TextMeasurer
}

// NewCanvas wraps state; fonts is used to size field boxes
func NewCanvas(state *CanvasState, fonts TextMeasurer) *Canvas {
	if state.Overlays == nil {
		state.Overlays = NewOverlayModel()
	}
	return &Canvas{State: state, fonts: fonts}
}

// LoadDesign replaces the design asset. Images and PDFs are accepted; only
// images can be rendered, and only their natural size is read here.
func (c *Canvas) LoadDesign(asset *models.DesignAsset) error {
	if asset == nil || len(asset.Data) == 0 {
		return ErrNoDesign
	}
	ct := strings.ToLower(asset.ContentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		cfg, _, err := image.DecodeConfig(bytes.NewReader(asset.Data))
		if err != nil {
			return fmt.Errorf("failed to read design dimensions: %w", err)
		}
		asset.Natural = layout.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	case ct == "application/pdf":
		asset.Natural = layout.Size{}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDesign, asset.ContentType)
	}

	c.State.Design = asset
	c.cancelGestures()
	log.Printf("✓ Design loaded: %s (%s, %.0fx%.0f)", asset.FileName, asset.ContentType, asset.Natural.Width, asset.Natural.Height)
	return nil
}

// SetPreviewSize records the measured on-screen size of the design. Stored
// positions are not rescaled; they are read against the new size.
func (c *Canvas) SetPreviewSize(size layout.Size) error {
	if !size.Measured() {
		return layout.ErrNotMeasured
	}
	c.State.Preview = size
	return nil
}

// SetFontFamily changes the family used by every field overlay
func (c *Canvas) SetFontFamily(family string) {
	family = strings.TrimSpace(family)
	if family == "" {
		family = render.DefaultFontFamily
	}
	c.State.FontFamily = family
}

// SetRecords replaces the selection. The first record drives the preview;
// export iterates all of them in order.
func (c *Canvas) SetRecords(records []models.Student) {
	c.State.Records = records
}

// RepresentativeRecord is the record shown in the preview
func (c *Canvas) RepresentativeRecord() (models.Student, bool) {
	if len(c.State.Records) == 0 {
		return models.Student{}, false
	}
	return c.State.Records[0], true
}

// PhotoVisible reports whether the photo slot is shown in the preview
func (c *Canvas) PhotoVisible() bool {
	rec, ok := c.RepresentativeRecord()
	return ok && rec.HasPhoto()
}

// Snapshot is the template handed to the export pipeline
func (c *Canvas) Snapshot() models.TemplateSnapshot {
	return c.State.Overlays.Snapshot(c.State.FontFamily)
}

// FieldBox is the preview-space box of a field overlay: the representative
// value's width plus padding on both sides, one band high.
func (c *Canvas) FieldBox(f models.FieldOverlay) layout.Rect {
	var text string
	if rec, ok := c.RepresentativeRecord(); ok {
		text = rec.FieldValue(f.Field)
	}
	width := float64(2 * models.FieldBandPadding)
	if text != "" && c.fonts != nil {
		width += c.fonts.MeasureText(c.State.FontFamily, float64(f.FontSize), text)
	}
	return layout.Rect{
		X:      f.Position.X,
		Y:      f.Position.Y,
		Width:  math.Max(width, minFieldBoxWidth),
		Height: models.FieldBandHeight,
	}
}

func (c *Canvas) box(t Target) (layout.Rect, bool) {
	if t.Kind == TargetPhoto {
		return c.State.Overlays.Photo.Rect(), true
	}
	f, ok := c.State.Overlays.Field(t.ID)
	if !ok {
		return layout.Rect{}, false
	}
	return c.FieldBox(f), true
}

// HitTest returns the topmost overlay under p. Fields are above the photo and
// later fields above earlier ones.
func (c *Canvas) HitTest(p layout.Point) (Target, bool) {
	fields := c.State.Overlays.Fields
	for i := len(fields) - 1; i >= 0; i-- {
		if c.FieldBox(fields[i]).Contains(p) {
			return Target{Kind: TargetField, ID: fields[i].ID}, true
		}
	}
	if c.PhotoVisible() && c.State.Overlays.Photo.Rect().Contains(p) {
		return Target{Kind: TargetPhoto}, true
	}
	return Target{}, false
}

// BeginDrag grabs the overlay under p. A press on empty space closes the menu.
func (c *Canvas) BeginDrag(p layout.Point) (Target, bool) {
	c.cancelGestures()
	t, ok := c.HitTest(p)
	if !ok {
		c.CloseMenu()
		return Target{}, false
	}
	box, _ := c.box(t)
	c.State.Drag = &DragState{
		Target: t,
		Grab:   layout.Point{X: p.X - box.X, Y: p.Y - box.Y},
		Box:    box,
	}
	return t, true
}

// DragTo moves the live box so the grab point follows the pointer, keeping the
// box inside the preview
func (c *Canvas) DragTo(p layout.Point) (layout.Rect, error) {
	d := c.State.Drag
	if d == nil {
		return layout.Rect{}, ErrNoGesture
	}
	d.Box.X = p.X - d.Grab.X
	d.Box.Y = p.Y - d.Grab.Y
	if c.State.Preview.Measured() {
		d.Box = d.Box.ClampInto(c.State.Preview)
	}
	return d.Box, nil
}

// EndDrag drops the overlay and writes its position to the model
func (c *Canvas) EndDrag(p layout.Point) (layout.Point, error) {
	box, err := c.DragTo(p)
	if err != nil {
		return layout.Point{}, err
	}
	d := c.State.Drag
	c.State.Drag = nil

	pos := box.Min()
	switch d.Target.Kind {
	case TargetPhoto:
		c.State.Overlays.UpdatePhoto(pos, c.State.Overlays.Photo.Size)
	default:
		if err := c.State.Overlays.UpdateField(d.Target.ID, models.FieldChanges{Position: &pos}); err != nil {
			return layout.Point{}, err
		}
	}
	return pos, nil
}

// BeginResize starts resizing the photo slot from one of its handles
func (c *Canvas) BeginResize(h Handle, p layout.Point) error {
	if _, err := ParseHandle(string(h)); err != nil {
		return err
	}
	if !c.PhotoVisible() {
		return ErrPhotoHidden
	}
	c.cancelGestures()
	c.State.Resize = &ResizeState{
		Handle: h,
		Start:  c.State.Overlays.Photo.Rect(),
		Anchor: p,
	}
	return nil
}

// ResizeTo applies the pointer delta to the edges the handle controls. The
// model is written on every move.
func (c *Canvas) ResizeTo(p layout.Point) (layout.Rect, error) {
	r := c.State.Resize
	if r == nil {
		return layout.Rect{}, ErrNoGesture
	}
	box := resizeBox(r.Start, r.Handle, p.X-r.Anchor.X, p.Y-r.Anchor.Y, c.State.Preview)
	c.State.Overlays.UpdatePhoto(box.Min(), layout.Size{Width: box.Width, Height: box.Height})
	return c.State.Overlays.Photo.Rect(), nil
}

// EndResize applies the final move and ends the gesture
func (c *Canvas) EndResize(p layout.Point) (layout.Rect, error) {
	box, err := c.ResizeTo(p)
	c.State.Resize = nil
	return box, err
}

// resizeBox moves the edges named by h, keeping the opposite edges fixed.
// Each side stays within the photo size bounds and inside the preview.
func resizeBox(start layout.Rect, h Handle, dx, dy float64, bounds layout.Size) layout.Rect {
	left, top := start.X, start.Y
	right, bottom := start.X+start.Width, start.Y+start.Height

	hs := string(h)
	switch {
	case strings.Contains(hs, "w"):
		left = moveEdge(left+dx, right, -1, bounds.Width)
	case strings.Contains(hs, "e"):
		right = moveEdge(right+dx, left, 1, bounds.Width)
	}
	switch {
	case strings.Contains(hs, "n"):
		top = moveEdge(top+dy, bottom, -1, bounds.Height)
	case strings.Contains(hs, "s"):
		bottom = moveEdge(bottom+dy, top, 1, bounds.Height)
	}

	box := layout.Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
	if bounds.Measured() {
		box = box.ClampInto(bounds)
	}
	return box
}

// moveEdge places a moving edge given the fixed opposite one. dir is +1 when
// the moving edge is on the far side (right or bottom), -1 otherwise.
func moveEdge(edge, fixedEdge, dir, limit float64) float64 {
	if limit > 0 {
		edge = math.Max(0, math.Min(edge, limit))
	}
	length := (edge - fixedEdge) * dir
	length = math.Max(models.MinPhotoSize, math.Min(length, models.MaxPhotoSize))
	return fixedEdge + dir*length
}

// Activate registers an activation (click or tap) of a field overlay. A second
// activation of the same field within DoubleActivationWindow opens its menu.
func (c *Canvas) Activate(id int, at time.Time) (bool, error) {
	if _, ok := c.State.Overlays.Field(id); !ok {
		return false, fmt.Errorf("%w: %d", ErrOverlayNotFound, id)
	}
	last := c.State.LastActivation
	if last != nil && last.FieldID == id && at.Sub(last.At) >= 0 && at.Sub(last.At) <= DoubleActivationWindow {
		c.State.LastActivation = nil
		c.State.Menu = MenuState{Open: true, FieldID: id}
		return true, nil
	}
	c.State.LastActivation = &Activation{FieldID: id, At: at}
	return false, nil
}

func (c *Canvas) menuField() (int, error) {
	m := c.State.Menu
	if !m.Open {
		return 0, ErrMenuClosed
	}
	if _, ok := c.State.Overlays.Field(m.FieldID); !ok {
		c.CloseMenu()
		return 0, ErrMenuClosed
	}
	return m.FieldID, nil
}

// MenuSelectField rebinds the menu's field and closes the menu
func (c *Canvas) MenuSelectField(key models.FieldKey) error {
	id, err := c.menuField()
	if err != nil {
		return err
	}
	if err := c.State.Overlays.UpdateField(id, models.FieldChanges{Field: &key}); err != nil {
		return err
	}
	c.CloseMenu()
	return nil
}

// MenuSetColor changes the menu field's color; the menu stays open
func (c *Canvas) MenuSetColor(color string) error {
	id, err := c.menuField()
	if err != nil {
		return err
	}
	return c.State.Overlays.UpdateField(id, models.FieldChanges{FontColor: &color})
}

// MenuSetFontSize changes the menu field's font size; the menu stays open
func (c *Canvas) MenuSetFontSize(size int) error {
	id, err := c.menuField()
	if err != nil {
		return err
	}
	return c.State.Overlays.UpdateField(id, models.FieldChanges{FontSize: &size})
}

// CloseMenu dismisses the field menu
func (c *Canvas) CloseMenu() {
	c.State.Menu = MenuState{}
}

// RemoveField deletes an overlay, closing its menu if open
func (c *Canvas) RemoveField(id int) bool {
	if !c.State.Overlays.RemoveField(id) {
		return false
	}
	if c.State.Menu.Open && c.State.Menu.FieldID == id {
		c.CloseMenu()
	}
	if c.State.Drag != nil && c.State.Drag.Target.Kind == TargetField && c.State.Drag.Target.ID == id {
		c.State.Drag = nil
	}
	return true
}

func (c *Canvas) cancelGestures() {
	c.State.Drag = nil
	c.State.Resize = nil
}

// RenderPreview composites the representative record at preview resolution.
// photo is the decoded photo of that record, or nil.
func (c *Canvas) RenderPreview(comp *render.Compositor, photo image.Image) (image.Image, error) {
	if c.State.Design == nil {
		return nil, ErrNoDesign
	}
	if !c.State.Preview.Measured() {
		return nil, layout.ErrNotMeasured
	}
	rec, ok := c.RepresentativeRecord()
	if !ok {
		return nil, ErrNoRecords
	}

	design, err := render.DecodeDesign(c.State.Design)
	if err != nil {
		return nil, err
	}
	design = design.Resized(c.State.Preview)

	ws, err := render.NewWorkspace(comp.Fonts(), design.Natural)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	if !rec.HasPhoto() {
		photo = nil
	}
	return comp.Render(ws, render.Card{
		Design:    design,
		Transform: layout.Identity(),
		Template:  c.Snapshot(),
		Student:   rec,
		Photo:     photo,
	})
}
