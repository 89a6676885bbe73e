package service

import (
	"bytes"
	"context"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"campus-idcards/editor"
	"campus-idcards/layout"
	"campus-idcards/models"
	"campus-idcards/render"
	"campus-idcards/repository"
)

type stubStudents struct {
	byID map[int64]models.Student
}

func (s *stubStudents) List(_ context.Context, _ string) ([]models.Student, error) {
	var out []models.Student
	for _, st := range s.byID {
		out = append(out, st)
	}
	return out, nil
}

func (s *stubStudents) GetByIDs(_ context.Context, ids []int64) ([]models.Student, error) {
	var out []models.Student
	for _, id := range ids {
		if st, ok := s.byID[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

// slowSessions widens the window between loading and storing a session
type slowSessions struct {
	*repository.MemorySessionStore
}

func (s slowSessions) Update(ctx context.Context, id string, fn func(*editor.CanvasState) error) (*editor.CanvasState, error) {
	return s.MemorySessionStore.Update(ctx, id, func(state *editor.CanvasState) error {
		time.Sleep(2 * time.Millisecond)
		return fn(state)
	})
}

func newTemplateService(t *testing.T) *TemplateService {
	t.Helper()
	return newTemplateServiceWith(t, repository.NewMemorySessionStore(time.Hour))
}

func newTemplateServiceWith(t *testing.T, sessions repository.SessionStoreInterface) *TemplateService {
	t.Helper()
	compositor := render.NewCompositor(render.NewFontRegistry())
	photos := &stubPhotos{}
	students := &stubStudents{byID: map[int64]models.Student{
		1: {ID: 1, FullName: "Asha Rao", RollNumber: "12", PassportPhoto: "asha.jpg"},
		2: {ID: 2, FullName: "Ben Okafor", RollNumber: "7"},
		3: {ID: 3, FullName: "Chen Li", RollNumber: "3"},
	}}
	return NewTemplateService(
		sessions,
		repository.NewMemoryDesignStore(time.Hour),
		students,
		compositor,
		photos,
		NewExportService(compositor, photos),
		NewDesignPreviewCache(t.TempDir()),
	)
}

func readySession(t *testing.T, svc *TemplateService) string {
	t.Helper()
	ctx := context.Background()
	id, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = svc.UploadDesign(ctx, id, pngDesign(t, 600, 400))
	require.NoError(t, err)
	_, err = svc.SetPreviewSize(ctx, id, layout.Size{Width: 300, Height: 200})
	require.NoError(t, err)
	_, err = svc.SelectRecords(ctx, id, []int64{2, 1, 3})
	require.NoError(t, err)
	return id
}

func TestTemplateService_EditAndExport(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()
	id := readySession(t, svc)

	state, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, layout.Size{Width: 600, Height: 400}, state.Design.Natural)
	require.Len(t, state.Records, 3)
	assert.Equal(t, int64(2), state.Records[0].ID, "selection order is kept")

	fieldID, state, err := svc.AddField(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, fieldID)
	assert.Len(t, state.Overlays.Fields, 2)

	roll := models.FieldRollNumber
	_, err = svc.UpdateField(ctx, id, fieldID, models.FieldChanges{Field: &roll})
	require.NoError(t, err)

	out, err := svc.Export(ctx, id, "zip")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ben_Okafor_idcard.png", "Asha_Rao_idcard.png", "Chen_Li_idcard.png"}, zipNames(t, out.Data))

	out, err = svc.Export(ctx, id, "PDF")
	require.NoError(t, err)
	assert.Len(t, pdfPage.FindAll(out.Data, -1), 3)

	_, err = svc.Export(ctx, id, "tiff")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestTemplateService_PDFDesignIsNotExportable(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()
	id := readySession(t, svc)

	_, err := svc.UploadDesign(ctx, id, &models.DesignAsset{FileName: "design.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	require.NoError(t, err)
	before, err := svc.GetSession(ctx, id)
	require.NoError(t, err)

	out, err := svc.Export(ctx, id, "zip")
	assert.ErrorIs(t, err, render.ErrDesignNotImage)
	assert.True(t, IsPrecondition(err))
	assert.Nil(t, out)

	after, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Overlays, after.Overlays, "refused export leaves the model unchanged")
}

func TestTemplateService_EmptySelection(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()
	id := readySession(t, svc)

	_, err := svc.SelectRecords(ctx, id, nil)
	require.NoError(t, err)

	_, err = svc.Export(ctx, id, "pdf")
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestTemplateService_PointerRoundTrip(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()
	id := readySession(t, svc)
	fixed := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	// the representative record has no photo, so the slot at (8, 8, 64, 64) is not grabbable
	res, err := svc.Pointer(ctx, id, editor.PointerEvent{Action: editor.PointerDown, X: 40, Y: 40})
	require.NoError(t, err)
	assert.Nil(t, res.Target)

	_, err = svc.SelectRecords(ctx, id, []int64{1})
	require.NoError(t, err)
	res, err = svc.Pointer(ctx, id, editor.PointerEvent{Action: editor.PointerDown, X: 40, Y: 40})
	require.NoError(t, err)
	require.NotNil(t, res.Target)
	assert.Equal(t, editor.TargetPhoto, res.Target.Kind)

	_, err = svc.Pointer(ctx, id, editor.PointerEvent{Action: editor.PointerMove, X: 140, Y: 60})
	require.NoError(t, err)
	_, err = svc.Pointer(ctx, id, editor.PointerEvent{Action: editor.PointerUp, X: 140, Y: 60})
	require.NoError(t, err)

	state, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, layout.Point{X: 108, Y: 28}, state.Overlays.Photo.Position)
	assert.Nil(t, state.Drag)

	// double activation opens the menu across requests
	_, err = svc.Pointer(ctx, id, editor.PointerEvent{Action: editor.PointerActivate, FieldID: ptrInt(0)})
	require.NoError(t, err)
	fixed = fixed.Add(150 * time.Millisecond)
	res, err = svc.Pointer(ctx, id, editor.PointerEvent{Action: editor.PointerActivate, FieldID: ptrInt(0)})
	require.NoError(t, err)
	assert.True(t, res.MenuOpen)

	size := 30
	state, err = svc.Menu(ctx, id, editor.MenuAction{FontSize: &size})
	require.NoError(t, err)
	assert.Equal(t, 30, state.Overlays.Fields[0].FontSize)
}

func TestTemplateService_RenderPreview(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()
	id := readySession(t, svc)

	data, err := svc.RenderPreview(ctx, id)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 200, cfg.Height)

	jpg, err := svc.DesignPreview(ctx, id, 150)
	require.NoError(t, err)
	assert.NotEmpty(t, jpg)
}

func TestTemplateService_ImportRecords(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()
	id, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Full Name", "Roll Number"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Dana Noor", "4"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	state, err := svc.ImportRecords(ctx, id, buf)
	require.NoError(t, err)
	require.Len(t, state.Records, 1)
	assert.Equal(t, "Dana Noor", state.Records[0].FullName)
}

func TestTemplateService_UnknownSession(t *testing.T) {
	svc := newTemplateService(t)
	_, _, err := svc.AddField(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func ptrInt(v int) *int { return &v }

func TestTemplateService_ConcurrentEditsAreNotLost(t *testing.T) {
	svc := newTemplateServiceWith(t, slowSessions{repository.NewMemorySessionStore(time.Hour)})
	ctx := context.Background()
	id, _, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	const clicks = 10
	var wg sync.WaitGroup
	ids := make(chan int, clicks)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fieldID, _, err := svc.AddField(ctx, id)
			assert.NoError(t, err)
			ids <- fieldID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int]bool{}
	for fieldID := range ids {
		seen[fieldID] = true
	}
	assert.Len(t, seen, clicks, "every click gets its own field id")

	state, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Len(t, state.Overlays.Fields, clicks+1)
}

func TestTemplateService_DesignBytesStayOutOfSession(t *testing.T) {
	svc := newTemplateService(t)
	ctx := context.Background()
	id := readySession(t, svc)

	state, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, state.Design)
	assert.Empty(t, state.Design.Data)
	assert.Equal(t, repository.DesignHash(pngDesign(t, 600, 400).Data), state.Design.Hash)

	// rendering loads the bytes back from the design store
	out, err := svc.Export(ctx, id, "zip")
	require.NoError(t, err)
	assert.Equal(t, 3, out.Cards)

	svc.designs = repository.NewMemoryDesignStore(time.Hour)
	_, err = svc.Export(ctx, id, "zip")
	assert.ErrorIs(t, err, repository.ErrDesignNotFound)
}
