package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"campus-idcards/editor"
	"campus-idcards/layout"
	"campus-idcards/models"
	"campus-idcards/render"
	"campus-idcards/repository"
	"campus-idcards/utils"
)

// ErrUnknownFormat is returned for export formats other than zip and pdf
var ErrUnknownFormat = errors.New("unknown export format")

// TemplateService drives editor sessions: every call loads the canvas state,
// applies one interaction and stores it back
// Implements TemplateServiceInterface
type TemplateService struct {
	sessions   repository.SessionStoreInterface
	designs    repository.DesignStoreInterface
	students   repository.StudentRepositoryInterface
	compositor *render.Compositor
	photos     PhotoLoaderInterface
	exports    ExportServiceInterface
	previews   *DesignPreviewCache
	now        func() time.Time
}

// NewTemplateService creates a new TemplateService instance
func NewTemplateService(
	sessions repository.SessionStoreInterface,
	designs repository.DesignStoreInterface,
	students repository.StudentRepositoryInterface,
	compositor *render.Compositor,
	photos PhotoLoaderInterface,
	exports ExportServiceInterface,
	previews *DesignPreviewCache,
) *TemplateService {
	return &TemplateService{
		sessions:   sessions,
		designs:    designs,
		students:   students,
		compositor: compositor,
		photos:     photos,
		exports:    exports,
		previews:   previews,
		now:        time.Now,
	}
}

// Ensure TemplateService implements TemplateServiceInterface
var _ TemplateServiceInterface = (*TemplateService)(nil)

func (s *TemplateService) open(ctx context.Context, id string) (*editor.Canvas, error) {
	state, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return editor.NewCanvas(state, s.compositor.Fonts()), nil
}

// withDesign loads the design bytes, which the session only references
func (s *TemplateService) withDesign(ctx context.Context, state *editor.CanvasState) error {
	d := state.Design
	if d == nil || len(d.Data) > 0 || d.Hash == "" {
		return nil
	}
	data, err := s.designs.Get(ctx, d.Hash)
	if err != nil {
		return err
	}
	d.Data = data
	return nil
}

// mutate applies fn to the session atomically; the state is stored only when
// fn succeeds. fn may be retried and must not keep side effects of a failed run.
func (s *TemplateService) mutate(ctx context.Context, id string, fn func(c *editor.Canvas) error) (*editor.CanvasState, error) {
	state, err := s.sessions.Update(ctx, id, func(state *editor.CanvasState) error {
		return fn(editor.NewCanvas(state, s.compositor.Fonts()))
	})
	if err != nil {
		return nil, err
	}
	if d := state.Design; d != nil && d.Hash != "" {
		if err := s.designs.Touch(ctx, d.Hash); err != nil {
			log.Printf("⚠️  Design of session %s not refreshed: %v", id, err)
		}
	}
	return state, nil
}

// CreateSession starts an editor with default overlays
func (s *TemplateService) CreateSession(ctx context.Context) (string, *editor.CanvasState, error) {
	state := editor.NewCanvasState()
	id, err := s.sessions.Create(ctx, state)
	if err != nil {
		return "", nil, err
	}
	return id, state, nil
}

// GetSession returns the current canvas state
func (s *TemplateService) GetSession(ctx context.Context, id string) (*editor.CanvasState, error) {
	return s.sessions.Get(ctx, id)
}

// DeleteSession discards an editor session
func (s *TemplateService) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

// UploadDesign replaces the session's design image
func (s *TemplateService) UploadDesign(ctx context.Context, id string, asset *models.DesignAsset) (*editor.CanvasState, error) {
	if asset.ContentType == "" || asset.ContentType == "application/octet-stream" {
		asset.ContentType = utils.ContentTypeFromFileName(asset.FileName)
	}
	return s.mutate(ctx, id, func(c *editor.Canvas) error {
		if err := c.LoadDesign(asset); err != nil {
			return err
		}
		hash, err := s.designs.Put(ctx, asset.Data)
		if err != nil {
			return err
		}
		asset.Hash = hash
		return nil
	})
}

// SetPreviewSize records the measured on-screen size of the design
func (s *TemplateService) SetPreviewSize(ctx context.Context, id string, size layout.Size) (*editor.CanvasState, error) {
	return s.mutate(ctx, id, func(c *editor.Canvas) error {
		return c.SetPreviewSize(size)
	})
}

// SelectRecords loads the given students, in that order, as the session's records
func (s *TemplateService) SelectRecords(ctx context.Context, id string, studentIDs []int64) (*editor.CanvasState, error) {
	if s.students == nil {
		return nil, fmt.Errorf("student repository not configured")
	}
	return s.mutate(ctx, id, func(c *editor.Canvas) error {
		records, err := s.students.GetByIDs(ctx, studentIDs)
		if err != nil {
			return err
		}
		c.SetRecords(records)
		return nil
	})
}

// ImportRecords replaces the session's records with the rows of an .xlsx sheet
func (s *TemplateService) ImportRecords(ctx context.Context, id string, r io.Reader) (*editor.CanvasState, error) {
	records, err := utils.ParseStudentsSheet(r)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(c *editor.Canvas) error {
		c.SetRecords(records)
		return nil
	})
}

// SetFontFamily changes the family of every field overlay. Unknown families
// are kept and fall back to the default font when rendering.
func (s *TemplateService) SetFontFamily(ctx context.Context, id, family string) (*editor.CanvasState, error) {
	if f := strings.TrimSpace(family); f != "" && !s.compositor.Fonts().Has(f) {
		log.Printf("⚠️  Font family %q is not installed, cards will use %s", f, render.DefaultFontFamily)
	}
	return s.mutate(ctx, id, func(c *editor.Canvas) error {
		c.SetFontFamily(family)
		return nil
	})
}

// AddField appends a field overlay and returns its id
func (s *TemplateService) AddField(ctx context.Context, id string) (int, *editor.CanvasState, error) {
	var fieldID int
	state, err := s.mutate(ctx, id, func(c *editor.Canvas) error {
		fieldID = c.State.Overlays.AddField()
		return nil
	})
	return fieldID, state, err
}

// UpdateField merges changes into one field overlay
func (s *TemplateService) UpdateField(ctx context.Context, id string, fieldID int, changes models.FieldChanges) (*editor.CanvasState, error) {
	return s.mutate(ctx, id, func(c *editor.Canvas) error {
		return c.State.Overlays.UpdateField(fieldID, changes)
	})
}

// RemoveField deletes a field overlay; the last one cannot be removed
func (s *TemplateService) RemoveField(ctx context.Context, id string, fieldID int) (bool, *editor.CanvasState, error) {
	var removed bool
	state, err := s.mutate(ctx, id, func(c *editor.Canvas) error {
		removed = c.RemoveField(fieldID)
		return nil
	})
	return removed, state, err
}

// UpdatePhoto places the photo slot directly
func (s *TemplateService) UpdatePhoto(ctx context.Context, id string, rect layout.Rect) (*editor.CanvasState, error) {
	return s.mutate(ctx, id, func(c *editor.Canvas) error {
		c.State.Overlays.UpdatePhoto(rect.Min(), layout.Size{Width: rect.Width, Height: rect.Height})
		return nil
	})
}

// Pointer applies one pointer event to the canvas
func (s *TemplateService) Pointer(ctx context.Context, id string, ev editor.PointerEvent) (editor.PointerResult, error) {
	var res editor.PointerResult
	_, err := s.mutate(ctx, id, func(c *editor.Canvas) error {
		var err error
		res, err = c.HandlePointer(ev, s.now())
		return err
	})
	return res, err
}

// Menu applies inline menu changes to the open field
func (s *TemplateService) Menu(ctx context.Context, id string, action editor.MenuAction) (*editor.CanvasState, error) {
	return s.mutate(ctx, id, func(c *editor.Canvas) error {
		return c.ApplyMenu(action)
	})
}

// RenderPreview renders the first record at preview resolution as PNG
func (s *TemplateService) RenderPreview(ctx context.Context, id string) ([]byte, error) {
	canvas, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.withDesign(ctx, canvas.State); err != nil {
		return nil, err
	}

	var photo image.Image
	if rec, ok := canvas.RepresentativeRecord(); ok && rec.HasPhoto() && s.photos != nil {
		photo, err = s.photos.Load(ctx, rec.PassportPhoto)
		if err != nil {
			log.Printf("⚠️  Preview photo unavailable: %v", err)
			photo = nil
		}
	}

	img, err := canvas.RenderPreview(s.compositor, photo)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// DesignPreview returns the design as a JPEG scaled to the client viewport width
func (s *TemplateService) DesignPreview(ctx context.Context, id string, width int) ([]byte, error) {
	state, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Design == nil {
		return nil, editor.ErrNoDesign
	}
	if !state.Design.IsImage() {
		return nil, render.ErrDesignNotImage
	}
	if err := s.withDesign(ctx, state); err != nil {
		return nil, err
	}
	return s.previews.Preview(state.Design.Data, width)
}

// Export renders every selected record into the requested container
func (s *TemplateService) Export(ctx context.Context, id, format string) (*models.ExportFile, error) {
	canvas, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.withDesign(ctx, canvas.State); err != nil {
		return nil, err
	}
	req := RequestFromCanvas(canvas)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case models.ExportFormatZIP, "":
		return s.exports.ExportArchive(ctx, req)
	case models.ExportFormatPDF:
		return s.exports.ExportDocument(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// FontFamilies lists the installed font families
func (s *TemplateService) FontFamilies() []string {
	return s.compositor.Fonts().Families()
}
