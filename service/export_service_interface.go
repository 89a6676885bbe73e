package service

import (
	"context"

	"campus-idcards/models"
)

// ExportServiceInterface defines the contract for batch card exports
type ExportServiceInterface interface {
	ExportArchive(ctx context.Context, req ExportRequest) (*models.ExportFile, error)
	ExportDocument(ctx context.Context, req ExportRequest) (*models.ExportFile, error)
}
