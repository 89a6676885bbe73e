package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-idcards/layout"
	"campus-idcards/models"
)

func TestHandlePointer_DragSequence(t *testing.T) {
	c := newCanvas(t, layout.Size{Width: 300, Height: 200}, withPhoto)
	now := time.Now()

	res, err := c.HandlePointer(PointerEvent{Action: PointerDown, X: 20, Y: 90}, now)
	require.NoError(t, err)
	require.NotNil(t, res.Target)
	assert.Equal(t, Target{Kind: TargetField, ID: 0}, *res.Target)

	res, err = c.HandlePointer(PointerEvent{Action: PointerMove, X: 62, Y: 100}, now)
	require.NoError(t, err)
	assert.Equal(t, layout.Point{X: 50, Y: 90}, res.Box.Min())

	_, err = c.HandlePointer(PointerEvent{Action: PointerUp, X: 62, Y: 100}, now)
	require.NoError(t, err)
	f, _ := c.State.Overlays.Field(0)
	assert.Equal(t, layout.Point{X: 50, Y: 90}, f.Position)

	// a stray move or release without a gesture does nothing
	res, err = c.HandlePointer(PointerEvent{Action: PointerMove, X: 1, Y: 1}, now)
	require.NoError(t, err)
	assert.Nil(t, res.Target)
}

func TestHandlePointer_ResizeSequence(t *testing.T) {
	c := newCanvas(t, layout.Size{Width: 300, Height: 300}, withPhoto)
	now := time.Now()

	_, err := c.HandlePointer(PointerEvent{Action: PointerDown, X: 72, Y: 72, Handle: "se"}, now)
	require.NoError(t, err)
	_, err = c.HandlePointer(PointerEvent{Action: PointerMove, X: 92, Y: 102}, now)
	require.NoError(t, err)
	res, err := c.HandlePointer(PointerEvent{Action: PointerUp, X: 92, Y: 102}, now)
	require.NoError(t, err)

	assert.Equal(t, layout.Rect{X: 8, Y: 8, Width: 84, Height: 94}, *res.Box)
	assert.Nil(t, c.State.Resize)

	_, err = c.HandlePointer(PointerEvent{Action: PointerDown, Handle: "middle"}, now)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestHandlePointer_DoubleActivation(t *testing.T) {
	c := newCanvas(t, layout.Size{Width: 300, Height: 300}, withPhoto)
	t0 := time.Now()

	res, err := c.HandlePointer(PointerEvent{Action: PointerActivate, X: 20, Y: 90}, t0)
	require.NoError(t, err)
	assert.False(t, res.MenuOpen)

	res, err = c.HandlePointer(PointerEvent{Action: PointerActivate, X: 21, Y: 91}, t0.Add(200*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, res.MenuOpen)

	// activating empty space is ignored
	res, err = c.HandlePointer(PointerEvent{Action: PointerActivate, X: 280, Y: 280}, t0)
	require.NoError(t, err)
	assert.Nil(t, res.Target)

	_, err = c.HandlePointer(PointerEvent{Action: "hover"}, t0)
	assert.Error(t, err)
}

func TestApplyMenu(t *testing.T) {
	c := newCanvas(t, layout.Size{Width: 300, Height: 300}, withPhoto)
	key := models.FieldDOB

	assert.ErrorIs(t, c.ApplyMenu(MenuAction{Field: &key}), ErrMenuClosed)

	c.State.Menu = MenuState{Open: true, FieldID: 0}
	size := 20
	color := "#000"
	require.NoError(t, c.ApplyMenu(MenuAction{FontSize: &size, FontColor: &color}))
	assert.True(t, c.State.Menu.Open)

	require.NoError(t, c.ApplyMenu(MenuAction{Field: &key}))
	assert.False(t, c.State.Menu.Open)

	f, _ := c.State.Overlays.Field(0)
	assert.Equal(t, models.FieldOverlay{ID: 0, Field: models.FieldDOB, Position: layout.Point{X: 8, Y: 80}, FontSize: 20, FontColor: "#000"}, f)

	c.State.Menu = MenuState{Open: true, FieldID: 0}
	require.NoError(t, c.ApplyMenu(MenuAction{Close: true}))
	assert.False(t, c.State.Menu.Open)
}
