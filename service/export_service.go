package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/disintegration/imaging"

	"campus-idcards/editor"
	"campus-idcards/layout"
	"campus-idcards/models"
	"campus-idcards/render"
	"campus-idcards/utils"
)

// ErrEmptySelection means an export was requested with no records
var ErrEmptySelection = errors.New("no records selected")

const (
	archiveFileName  = "idcards.zip"
	documentFileName = "idcards.pdf"
)

// IsPrecondition reports whether err is a refused export rather than a failure.
// Refusals produce no output at all.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, editor.ErrNoDesign) ||
		errors.Is(err, render.ErrDesignNotImage) ||
		errors.Is(err, layout.ErrNotMeasured)
}

// ExportRequest is everything a batch needs, captured when the export starts
type ExportRequest struct {
	Design   *models.DesignAsset
	Preview  layout.Size
	Template models.TemplateSnapshot
	Records  []models.Student
}

// RequestFromCanvas snapshots the canvas for export
func RequestFromCanvas(c *editor.Canvas) ExportRequest {
	records := make([]models.Student, len(c.State.Records))
	copy(records, c.State.Records)
	return ExportRequest{
		Design:   c.State.Design,
		Preview:  c.State.Preview,
		Template: c.Snapshot(),
		Records:  records,
	}
}

// ExportService renders one card per record and packages the batch
// Implements ExportServiceInterface
type ExportService struct {
	compositor *render.Compositor
	photos     PhotoLoaderInterface
	now        func() time.Time
}

// NewExportService creates a new ExportService instance
func NewExportService(compositor *render.Compositor, photos PhotoLoaderInterface) *ExportService {
	return &ExportService{
		compositor: compositor,
		photos:     photos,
		now:        time.Now,
	}
}

// Ensure ExportService implements ExportServiceInterface
var _ ExportServiceInterface = (*ExportService)(nil)

// renderedCard is one encoded card handed to a container
type renderedCard struct {
	index   int
	student models.Student
	png     []byte
	width   int
	height  int
}

// ExportArchive renders every record to PNG and packs them into a ZIP named
// after each record's full name
func (s *ExportService) ExportArchive(ctx context.Context, req ExportRequest) (*models.ExportFile, error) {
	log.Printf("📦 Starting archive export of %d cards", len(req.Records))
	archive := newArchiveBuilder()

	err := s.renderBatch(ctx, req, func(card renderedCard) error {
		archive.Add(utils.CardFileName(card.student.FullName, "png"), card.png)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := archive.Finalize(&buf, s.now()); err != nil {
		return nil, err
	}
	if archive.Len() < len(req.Records) {
		log.Printf("⚠️  %d cards shared a file name with another card and were overwritten", len(req.Records)-archive.Len())
	}

	log.Printf("🎉 Archive export completed: %d cards, %d entries, %d bytes", len(req.Records), archive.Len(), buf.Len())
	return &models.ExportFile{
		FileName:    archiveFileName,
		ContentType: "application/zip",
		Data:        buf.Bytes(),
		Cards:       len(req.Records),
	}, nil
}

// ExportDocument renders every record onto its own A4 page of one PDF
func (s *ExportService) ExportDocument(ctx context.Context, req ExportRequest) (*models.ExportFile, error) {
	log.Printf("📦 Starting document export of %d cards", len(req.Records))
	doc := newDocumentBuilder()

	err := s.renderBatch(ctx, req, func(card renderedCard) error {
		return doc.AddPage(card.png, card.width, card.height)
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := doc.Finalize(&buf); err != nil {
		return nil, err
	}

	log.Printf("🎉 Document export completed: %d pages, %d bytes", doc.PageCount(), buf.Len())
	return &models.ExportFile{
		FileName:    documentFileName,
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
		Cards:       len(req.Records),
	}, nil
}

// renderBatch checks the preconditions, then renders the records one by one in
// input order into a single workspace. Any failure aborts the batch.
func (s *ExportService) renderBatch(ctx context.Context, req ExportRequest, emit func(renderedCard) error) error {
	if len(req.Records) == 0 {
		return ErrEmptySelection
	}
	if req.Design == nil {
		return editor.ErrNoDesign
	}
	if !req.Design.IsImage() {
		return render.ErrDesignNotImage
	}

	design, err := render.DecodeDesign(req.Design)
	if err != nil {
		return err
	}
	transform, err := layout.NewTransform(design.Natural, req.Preview)
	if err != nil {
		return err
	}

	ws, err := render.NewWorkspace(s.compositor.Fonts(), design.Natural)
	if err != nil {
		return fmt.Errorf("failed to allocate workspace: %w", err)
	}
	defer ws.Close()

	start := time.Now()
	var buf bytes.Buffer
	for i, student := range req.Records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export cancelled after %d of %d cards: %w", i, len(req.Records), err)
		}

		img, err := s.compositor.Render(ws, render.Card{
			Design:    design,
			Transform: transform,
			Template:  req.Template,
			Student:   student,
			Photo:     s.loadPhoto(ctx, student),
		})
		if err != nil {
			log.Printf("❌ Failed to render card for student %d: %v", student.ID, err)
			return fmt.Errorf("failed to render card %d (student %d): %w", i+1, student.ID, err)
		}

		buf.Reset()
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return fmt.Errorf("failed to encode card %d: %w", i+1, err)
		}

		b := img.Bounds()
		if err := emit(renderedCard{
			index:   i,
			student: student,
			png:     bytes.Clone(buf.Bytes()),
			width:   b.Dx(),
			height:  b.Dy(),
		}); err != nil {
			return err
		}
	}

	log.Printf("✓ Rendered %d cards in %s", len(req.Records), time.Since(start).Round(time.Millisecond))
	return nil
}

// loadPhoto resolves a record's photo; a failure only drops the photo from that card
func (s *ExportService) loadPhoto(ctx context.Context, student models.Student) image.Image {
	if !student.HasPhoto() || s.photos == nil {
		return nil
	}
	img, err := s.photos.Load(ctx, student.PassportPhoto)
	if err != nil {
		log.Printf("⚠️  Photo for student %d unavailable, rendering without it: %v", student.ID, err)
		return nil
	}
	return img
}
