package editor

import (
	"fmt"
	"strings"
	"time"

	"campus-idcards/layout"
	"campus-idcards/models"
)

// Pointer actions accepted by HandlePointer
const (
	PointerDown     = "down"
	PointerMove     = "move"
	PointerUp       = "up"
	PointerActivate = "activate"
)

// PointerEvent is one pointer interaction in preview coordinates.
// Handle is set on a press that starts a photo resize; FieldID may name the
// field being activated instead of hit testing X/Y.
type PointerEvent struct {
	Action  string  `json:"action"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Handle  string  `json:"handle,omitempty"`
	FieldID *int    `json:"fieldId,omitempty"`
}

// PointerResult reports what the interaction did
type PointerResult struct {
	Target   *Target      `json:"target,omitempty"`
	Box      *layout.Rect `json:"box,omitempty"`
	MenuOpen bool         `json:"menuOpen"`
}

// HandlePointer routes one pointer event to the drag, resize or activation
// gesture it belongs to
func (c *Canvas) HandlePointer(ev PointerEvent, at time.Time) (PointerResult, error) {
	p := layout.Point{X: ev.X, Y: ev.Y}
	var res PointerResult

	switch strings.ToLower(ev.Action) {
	case PointerDown:
		if ev.Handle != "" {
			h, err := ParseHandle(ev.Handle)
			if err != nil {
				return res, err
			}
			if err := c.BeginResize(h, p); err != nil {
				return res, err
			}
			box := c.State.Overlays.Photo.Rect()
			res.Target, res.Box = &Target{Kind: TargetPhoto}, &box
			break
		}
		if t, ok := c.BeginDrag(p); ok {
			box := c.State.Drag.Box
			res.Target, res.Box = &t, &box
		}

	case PointerMove:
		switch {
		case c.State.Resize != nil:
			box, err := c.ResizeTo(p)
			if err != nil {
				return res, err
			}
			res.Target, res.Box = &Target{Kind: TargetPhoto}, &box
		case c.State.Drag != nil:
			t := c.State.Drag.Target
			box, err := c.DragTo(p)
			if err != nil {
				return res, err
			}
			res.Target, res.Box = &t, &box
		}

	case PointerUp:
		switch {
		case c.State.Resize != nil:
			box, err := c.EndResize(p)
			if err != nil {
				return res, err
			}
			res.Target, res.Box = &Target{Kind: TargetPhoto}, &box
		case c.State.Drag != nil:
			t := c.State.Drag.Target
			if _, err := c.EndDrag(p); err != nil {
				return res, err
			}
			box, _ := c.box(t)
			res.Target, res.Box = &t, &box
		}

	case PointerActivate:
		id, ok := c.activationTarget(ev, p)
		if !ok {
			break
		}
		if _, err := c.Activate(id, at); err != nil {
			return res, err
		}
		res.Target = &Target{Kind: TargetField, ID: id}

	default:
		return res, fmt.Errorf("unknown pointer action %q", ev.Action)
	}

	res.MenuOpen = c.State.Menu.Open
	return res, nil
}

func (c *Canvas) activationTarget(ev PointerEvent, p layout.Point) (int, bool) {
	if ev.FieldID != nil {
		return *ev.FieldID, true
	}
	t, ok := c.HitTest(p)
	if !ok || t.Kind != TargetField {
		return 0, false
	}
	return t.ID, true
}

// MenuAction is a batch of inline menu changes for the open field
type MenuAction struct {
	Field     *models.FieldKey `json:"field,omitempty"`
	FontColor *string          `json:"fontColor,omitempty"`
	FontSize  *int             `json:"fontSize,omitempty"`
	Close     bool             `json:"close,omitempty"`
}

// ApplyMenu applies style changes first, then the field binding, which closes
// the menu
func (c *Canvas) ApplyMenu(a MenuAction) error {
	if a.Close && a.Field == nil && a.FontColor == nil && a.FontSize == nil {
		c.CloseMenu()
		return nil
	}
	if a.FontColor != nil {
		if err := c.MenuSetColor(*a.FontColor); err != nil {
			return err
		}
	}
	if a.FontSize != nil {
		if err := c.MenuSetFontSize(*a.FontSize); err != nil {
			return err
		}
	}
	if a.Field != nil {
		if err := c.MenuSelectField(*a.Field); err != nil {
			return err
		}
	}
	if a.Close {
		c.CloseMenu()
	}
	return nil
}
