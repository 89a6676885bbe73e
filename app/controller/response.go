package controller

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"campus-idcards/editor"
	"campus-idcards/layout"
	"campus-idcards/repository"
	"campus-idcards/service"
)

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, editor.ErrOverlayNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrFontSizeOutOfRange),
		errors.Is(err, editor.ErrInvalidColor),
		errors.Is(err, editor.ErrInvalidField),
		errors.Is(err, editor.ErrInvalidHandle),
		errors.Is(err, layout.ErrNotMeasured),
		errors.Is(err, service.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, editor.ErrUnsupportedDesign):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, editor.ErrMenuClosed),
		errors.Is(err, editor.ErrNoGesture),
		errors.Is(err, editor.ErrPhotoHidden),
		errors.Is(err, editor.ErrNoDesign),
		errors.Is(err, editor.ErrNoRecords),
		errors.Is(err, repository.ErrSessionBusy),
		errors.Is(err, repository.ErrDesignNotFound):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError logs err under op and writes it with the mapped status
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ %s: %v", op, err)
	} else {
		log.Printf("⚠️  %s: %v", op, err)
	}
	http.Error(w, err.Error(), status)
}
