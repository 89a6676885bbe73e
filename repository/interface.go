package repository

import (
	"context"
	"errors"

	"campus-idcards/editor"
	"campus-idcards/models"
)

var (
	// ErrSessionNotFound is returned for unknown or expired editor sessions
	ErrSessionNotFound = errors.New("editor session not found")
	// ErrSessionBusy is returned when concurrent updates keep conflicting
	ErrSessionBusy = errors.New("editor session is busy")
	// ErrDesignNotFound is returned when a design blob expired or was never stored
	ErrDesignNotFound = errors.New("design not found")
)

// StudentRepositoryInterface defines the contract for reading student records
type StudentRepositoryInterface interface {
	List(ctx context.Context, classID string) ([]models.Student, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Student, error)
}

// SessionStoreInterface defines the contract for storing editor canvas state between requests.
// Update is atomic per session: fn sees the latest stored state and its result
// is only stored when fn succeeds. fn may run more than once.
type SessionStoreInterface interface {
	Create(ctx context.Context, state *editor.CanvasState) (string, error)
	Get(ctx context.Context, id string) (*editor.CanvasState, error)
	Update(ctx context.Context, id string, fn func(state *editor.CanvasState) error) (*editor.CanvasState, error)
	Delete(ctx context.Context, id string) error
}

// DesignStoreInterface defines the contract for design images kept outside
// the session state, addressed by content hash
type DesignStoreInterface interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, hash string) ([]byte, error)
	Touch(ctx context.Context, hash string) error
}
