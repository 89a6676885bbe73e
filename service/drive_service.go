package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// maxDriveImageBytes bounds a single photo download
const maxDriveImageBytes = 20 << 20

// DriveService handles Google Drive API operations
// Implements DriveServiceInterface
type DriveService struct {
	client *drive.Service
}

// NewDriveService creates a new DriveService instance
// credentialsPath should be the path to the Service Account JSON file
func NewDriveService(credentialsPath string) (*DriveService, error) {
	ctx := context.Background()

	driveService, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveService{
		client: driveService,
	}, nil
}

// Ensure DriveService implements DriveServiceInterface
var _ DriveServiceInterface = (*DriveService)(nil)

// DownloadImage fetches the content of an image file stored in Drive
func (ds *DriveService) DownloadImage(ctx context.Context, fileID string) ([]byte, error) {
	file, err := ds.client.Files.Get(fileID).
		Fields("id, name, mimeType, size").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file metadata: %w", err)
	}
	if !strings.HasPrefix(strings.ToLower(file.MimeType), "image/") {
		return nil, fmt.Errorf("drive file %s is %s, not an image", fileID, file.MimeType)
	}

	resp, err := ds.client.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDriveImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	if len(data) > maxDriveImageBytes {
		return nil, fmt.Errorf("drive file %s exceeds %d bytes", fileID, maxDriveImageBytes)
	}

	log.Printf("📥 Downloaded %s from Drive (%d bytes)", file.Name, len(data))
	return data, nil
}
