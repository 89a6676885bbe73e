package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"campus-idcards/editor"
	"campus-idcards/layout"
	"campus-idcards/models"
	"campus-idcards/service"
)

const (
	maxDesignUpload = 25 << 20
	maxSheetUpload  = 10 << 20
)

// TemplateController handles HTTP requests for ID card editor sessions
type TemplateController struct {
	templateService service.TemplateServiceInterface
}

// NewTemplateController creates a new TemplateController
func NewTemplateController(templateService service.TemplateServiceInterface) *TemplateController {
	return &TemplateController{
		templateService: templateService,
	}
}

// designInfo describes the loaded design without its bytes
type designInfo struct {
	FileName    string      `json:"fileName"`
	ContentType string      `json:"contentType"`
	Natural     layout.Size `json:"natural"`
	Exportable  bool        `json:"exportable"`
}

// fieldOption is one choice of the inline field menu
type fieldOption struct {
	Key   models.FieldKey `json:"key"`
	Label string          `json:"label"`
}

func fieldOptions() []fieldOption {
	options := make([]fieldOption, len(models.FieldKeys))
	for i, k := range models.FieldKeys {
		options[i] = fieldOption{Key: k, Label: k.Label()}
	}
	return options
}

// SessionResponse is the client view of a canvas state
type SessionResponse struct {
	ID           string               `json:"id"`
	Design       *designInfo          `json:"design,omitempty"`
	Preview      layout.Size          `json:"preview"`
	Overlays     *editor.OverlayModel `json:"overlays"`
	FontFamily   string               `json:"fontFamily"`
	Records      []models.Student     `json:"records"`
	PhotoVisible bool                 `json:"photoVisible"`
	Menu         editor.MenuState     `json:"menu"`
	Drag         *editor.DragState    `json:"drag,omitempty"`
	Resize       *editor.ResizeState  `json:"resize,omitempty"`
	FieldOptions []fieldOption        `json:"fieldOptions"`
}

func newSessionResponse(id string, state *editor.CanvasState) SessionResponse {
	resp := SessionResponse{
		ID:           id,
		Preview:      state.Preview,
		Overlays:     state.Overlays,
		FontFamily:   state.FontFamily,
		Records:      state.Records,
		Menu:         state.Menu,
		Drag:         state.Drag,
		Resize:       state.Resize,
		FieldOptions: fieldOptions(),
	}
	if resp.Records == nil {
		resp.Records = []models.Student{}
	}
	if d := state.Design; d != nil {
		resp.Design = &designInfo{
			FileName:    d.FileName,
			ContentType: d.ContentType,
			Natural:     d.Natural,
			Exportable:  d.IsImage(),
		}
	}
	if len(state.Records) > 0 {
		resp.PhotoVisible = state.Records[0].HasPhoto()
	}
	return resp
}

func (c *TemplateController) respond(w http.ResponseWriter, op, id string, state *editor.CanvasState, err error) {
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, state))
}

// writeFormError answers 413 when the upload exceeded its limit
func writeFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, fmt.Sprintf("Invalid multipart form: %v", err), http.StatusBadRequest)
}

func fieldIDFromPath(r *http.Request) (int, error) {
	raw := r.PathValue("fieldId")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid field id: %s", raw)
	}
	return id, nil
}

// CreateSession handles POST /admin/idcards/sessions
func (c *TemplateController) CreateSession(w http.ResponseWriter, r *http.Request) {
	log.Printf("📥 CreateSession: Received %s request to %s", r.Method, r.URL.Path)
	id, state, err := c.templateService.CreateSession(r.Context())
	if err != nil {
		writeError(w, "CreateSession", err)
		return
	}
	log.Printf("✓ CreateSession: Session %s created", id)
	writeJSON(w, http.StatusCreated, newSessionResponse(id, state))
}

// GetSession handles GET /admin/idcards/sessions/{id}
func (c *TemplateController) GetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := c.templateService.GetSession(r.Context(), id)
	c.respond(w, "GetSession", id, state, err)
}

// DeleteSession handles DELETE /admin/idcards/sessions/{id}
func (c *TemplateController) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := c.templateService.DeleteSession(r.Context(), id); err != nil {
		writeError(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadDesign handles POST /admin/idcards/sessions/{id}/design
// Multipart form with the image (or PDF) in the "design" part.
func (c *TemplateController) UploadDesign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	log.Printf("📥 UploadDesign: Received %s request for session %s", r.Method, id)

	r.Body = http.MaxBytesReader(w, r.Body, maxDesignUpload)
	if err := r.ParseMultipartForm(maxDesignUpload); err != nil {
		writeFormError(w, err)
		return
	}
	file, header, err := r.FormFile("design")
	if err != nil {
		http.Error(w, "design file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to read design: %v", err), http.StatusBadRequest)
		return
	}

	asset := &models.DesignAsset{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	state, err := c.templateService.UploadDesign(r.Context(), id, asset)
	if err == nil {
		log.Printf("✓ UploadDesign: %s (%s, %.0fx%.0f)", asset.FileName, asset.ContentType, state.Design.Natural.Width, state.Design.Natural.Height)
	}
	c.respond(w, "UploadDesign", id, state, err)
}

// DesignPreview handles GET /admin/idcards/sessions/{id}/design/preview?width=
func (c *TemplateController) DesignPreview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	width := 0
	if raw := r.URL.Query().Get("width"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "width must be an integer", http.StatusBadRequest)
			return
		}
		width = v
	}

	data, err := c.templateService.DesignPreview(r.Context(), id, width)
	if err != nil {
		writeError(w, "DesignPreview", err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := w.Write(data); err != nil {
		log.Printf("❌ DesignPreview: Error writing response: %v", err)
	}
}

// SetPreviewSize handles PUT /admin/idcards/sessions/{id}/preview-size
// {"width": 480, "height": 300}
func (c *TemplateController) SetPreviewSize(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var size layout.Size
	if err := json.NewDecoder(r.Body).Decode(&size); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	state, err := c.templateService.SetPreviewSize(r.Context(), id, size)
	c.respond(w, "SetPreviewSize", id, state, err)
}

type selectRecordsRequest struct {
	StudentIDs []int64 `json:"studentIds"`
}

// SelectRecords handles PUT /admin/idcards/sessions/{id}/records
// {"studentIds": [12, 4, 9]}
func (c *TemplateController) SelectRecords(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req selectRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	state, err := c.templateService.SelectRecords(r.Context(), id, req.StudentIDs)
	if err == nil {
		log.Printf("✓ SelectRecords: %d records selected for session %s", len(state.Records), id)
	}
	c.respond(w, "SelectRecords", id, state, err)
}

// ImportRecords handles POST /admin/idcards/sessions/{id}/records/import
// Multipart form with an .xlsx sheet in the "file" part.
func (c *TemplateController) ImportRecords(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	r.Body = http.MaxBytesReader(w, r.Body, maxSheetUpload)
	if err := r.ParseMultipartForm(maxSheetUpload); err != nil {
		writeFormError(w, err)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	state, err := c.templateService.ImportRecords(r.Context(), id, file)
	if err == nil {
		log.Printf("✓ ImportRecords: %d records imported for session %s", len(state.Records), id)
	}
	c.respond(w, "ImportRecords", id, state, err)
}

type fontFamilyRequest struct {
	FontFamily string `json:"fontFamily"`
}

// SetFontFamily handles PUT /admin/idcards/sessions/{id}/font-family
func (c *TemplateController) SetFontFamily(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req fontFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	state, err := c.templateService.SetFontFamily(r.Context(), id, req.FontFamily)
	c.respond(w, "SetFontFamily", id, state, err)
}

// ListFonts handles GET /admin/idcards/fonts
func (c *TemplateController) ListFonts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"families": c.templateService.FontFamilies()})
}

// AddField handles POST /admin/idcards/sessions/{id}/fields
func (c *TemplateController) AddField(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fieldID, state, err := c.templateService.AddField(r.Context(), id)
	if err != nil {
		writeError(w, "AddField", err)
		return
	}
	log.Printf("✓ AddField: Field %d added to session %s", fieldID, id)
	writeJSON(w, http.StatusCreated, newSessionResponse(id, state))
}

// UpdateField handles PATCH /admin/idcards/sessions/{id}/fields/{fieldId}
// Any subset of {"field", "position", "fontSize", "fontColor"}.
func (c *TemplateController) UpdateField(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fieldID, err := fieldIDFromPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var changes models.FieldChanges
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	state, err := c.templateService.UpdateField(r.Context(), id, fieldID, changes)
	c.respond(w, "UpdateField", id, state, err)
}

// RemoveField handles DELETE /admin/idcards/sessions/{id}/fields/{fieldId}
// Removing the last field is refused with 409.
func (c *TemplateController) RemoveField(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fieldID, err := fieldIDFromPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	removed, state, err := c.templateService.RemoveField(r.Context(), id, fieldID)
	if err != nil {
		writeError(w, "RemoveField", err)
		return
	}
	if !removed {
		http.Error(w, fmt.Sprintf("field %d cannot be removed", fieldID), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, state))
}

// UpdatePhoto handles PUT /admin/idcards/sessions/{id}/photo
// {"x": 8, "y": 8, "width": 64, "height": 64}
func (c *TemplateController) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var rect layout.Rect
	if err := json.NewDecoder(r.Body).Decode(&rect); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	state, err := c.templateService.UpdatePhoto(r.Context(), id, rect)
	c.respond(w, "UpdatePhoto", id, state, err)
}

// Pointer handles POST /admin/idcards/sessions/{id}/pointer
// {"action": "down", "x": 40, "y": 40}
func (c *TemplateController) Pointer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var ev editor.PointerEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	res, err := c.templateService.Pointer(r.Context(), id, ev)
	if err != nil {
		writeError(w, "Pointer", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Menu handles PUT /admin/idcards/sessions/{id}/menu
// {"field": "roll_number", "fontColor": "#004488", "fontSize": 20, "close": false}
func (c *TemplateController) Menu(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var action editor.MenuAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	state, err := c.templateService.Menu(r.Context(), id, action)
	c.respond(w, "Menu", id, state, err)
}

// RenderPreview handles GET /admin/idcards/sessions/{id}/preview
// Returns the first record composited at preview size as PNG.
func (c *TemplateController) RenderPreview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := c.templateService.RenderPreview(r.Context(), id)
	if err != nil {
		writeError(w, "RenderPreview", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		log.Printf("❌ RenderPreview: Error writing response: %v", err)
	}
}
