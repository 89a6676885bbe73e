package service

import (
	"context"
	"io"

	"campus-idcards/editor"
	"campus-idcards/layout"
	"campus-idcards/models"
)

// TemplateServiceInterface defines the contract for ID card editor sessions
type TemplateServiceInterface interface {
	CreateSession(ctx context.Context) (string, *editor.CanvasState, error)
	GetSession(ctx context.Context, id string) (*editor.CanvasState, error)
	DeleteSession(ctx context.Context, id string) error
	UploadDesign(ctx context.Context, id string, asset *models.DesignAsset) (*editor.CanvasState, error)
	SetPreviewSize(ctx context.Context, id string, size layout.Size) (*editor.CanvasState, error)
	SelectRecords(ctx context.Context, id string, studentIDs []int64) (*editor.CanvasState, error)
	ImportRecords(ctx context.Context, id string, r io.Reader) (*editor.CanvasState, error)
	SetFontFamily(ctx context.Context, id, family string) (*editor.CanvasState, error)
	AddField(ctx context.Context, id string) (int, *editor.CanvasState, error)
	UpdateField(ctx context.Context, id string, fieldID int, changes models.FieldChanges) (*editor.CanvasState, error)
	RemoveField(ctx context.Context, id string, fieldID int) (bool, *editor.CanvasState, error)
	UpdatePhoto(ctx context.Context, id string, rect layout.Rect) (*editor.CanvasState, error)
	Pointer(ctx context.Context, id string, ev editor.PointerEvent) (editor.PointerResult, error)
	Menu(ctx context.Context, id string, action editor.MenuAction) (*editor.CanvasState, error)
	RenderPreview(ctx context.Context, id string) ([]byte, error)
	DesignPreview(ctx context.Context, id string, width int) ([]byte, error)
	Export(ctx context.Context, id, format string) (*models.ExportFile, error)
	FontFamilies() []string
}
