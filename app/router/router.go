package router

import (
	"net/http"

	"campus-idcards/app/controller"
)

type Controllers struct {
	Template *controller.TemplateController
	Export   *controller.ExportController
	Student  *controller.StudentController
}

// pingHandler handles GET /ping
func pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// SetupRoutes registers every route on mux
func SetupRoutes(mux *http.ServeMux, controllers *Controllers) {
	// Ping endpoint
	mux.HandleFunc("GET /ping", pingHandler)

	// Students available for card selection
	if controllers.Student != nil {
		mux.HandleFunc("GET /admin/students", controllers.Student.ListStudents)
	}

	// Installed font families
	mux.HandleFunc("GET /admin/idcards/fonts", controllers.Template.ListFonts)

	// Editor sessions
	mux.HandleFunc("POST /admin/idcards/sessions", controllers.Template.CreateSession)
	mux.HandleFunc("GET /admin/idcards/sessions/{id}", controllers.Template.GetSession)
	mux.HandleFunc("DELETE /admin/idcards/sessions/{id}", controllers.Template.DeleteSession)

	// Design image
	mux.HandleFunc("POST /admin/idcards/sessions/{id}/design", controllers.Template.UploadDesign)
	mux.HandleFunc("GET /admin/idcards/sessions/{id}/design/preview", controllers.Template.DesignPreview)
	mux.HandleFunc("PUT /admin/idcards/sessions/{id}/preview-size", controllers.Template.SetPreviewSize)

	// Records
	mux.HandleFunc("PUT /admin/idcards/sessions/{id}/records", controllers.Template.SelectRecords)
	mux.HandleFunc("POST /admin/idcards/sessions/{id}/records/import", controllers.Template.ImportRecords)

	// Overlays
	mux.HandleFunc("PUT /admin/idcards/sessions/{id}/font-family", controllers.Template.SetFontFamily)
	mux.HandleFunc("POST /admin/idcards/sessions/{id}/fields", controllers.Template.AddField)
	mux.HandleFunc("PATCH /admin/idcards/sessions/{id}/fields/{fieldId}", controllers.Template.UpdateField)
	mux.HandleFunc("DELETE /admin/idcards/sessions/{id}/fields/{fieldId}", controllers.Template.RemoveField)
	mux.HandleFunc("PUT /admin/idcards/sessions/{id}/photo", controllers.Template.UpdatePhoto)

	// Canvas interaction
	mux.HandleFunc("POST /admin/idcards/sessions/{id}/pointer", controllers.Template.Pointer)
	mux.HandleFunc("PUT /admin/idcards/sessions/{id}/menu", controllers.Template.Menu)
	mux.HandleFunc("GET /admin/idcards/sessions/{id}/preview", controllers.Template.RenderPreview)

	// Batch export
	mux.HandleFunc("POST /admin/idcards/sessions/{id}/export", controllers.Export.Export)
}
