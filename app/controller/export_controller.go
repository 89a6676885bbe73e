package controller

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"campus-idcards/service"
)

// ExportController handles batch card exports
type ExportController struct {
	templateService service.TemplateServiceInterface
}

// NewExportController creates a new ExportController
func NewExportController(templateService service.TemplateServiceInterface) *ExportController {
	return &ExportController{
		templateService: templateService,
	}
}

// Export handles POST /admin/idcards/sessions/{id}/export?format=zip|pdf
// Renders every selected record and returns the container as an attachment.
// Responds 204 without a body when there is nothing to export (no records,
// no image design, or the preview was never measured).
func (c *ExportController) Export(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	format := r.URL.Query().Get("format")
	log.Printf("📥 Export: Received %s request for session %s (format=%q)", r.Method, id, format)

	start := time.Now()
	out, err := c.templateService.Export(r.Context(), id, format)
	if err != nil {
		if service.IsPrecondition(err) {
			log.Printf("⚠️  Export: Nothing to export for session %s: %v", id, err)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, "Export", err)
		return
	}
	log.Printf("🎉 Export: %d cards in %s (%d bytes) for session %s in %s", out.Cards, out.FileName, len(out.Data), id, time.Since(start).Round(time.Millisecond))

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", out.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		log.Printf("❌ Export: Error writing response: %v", err)
	}
}
