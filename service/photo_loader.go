package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

var (
	// ErrNoPhoto means the record carries no photo reference
	ErrNoPhoto = errors.New("record has no photo")
	// ErrDriveDisabled means a drive: reference was found but Drive is not configured
	ErrDriveDisabled = errors.New("google drive is not configured")
)

const (
	drivePrefix      = "drive:"
	maxPhotoBytes    = 20 << 20
	photoHTTPTimeout = 15 * time.Second
)

// PhotoLoaderInterface defines the contract for resolving a record's photo reference
type PhotoLoaderInterface interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// PhotoLoader resolves passport photo references: inline data URIs, files in
// the documents directory, drive:<fileId> references and http(s) URLs.
// Implements PhotoLoaderInterface
type PhotoLoader struct {
	documentsDir string
	drive        DriveServiceInterface
	httpClient   *http.Client
}

// NewPhotoLoader creates a loader. drive may be nil, in which case drive:
// references fail with ErrDriveDisabled.
func NewPhotoLoader(documentsDir string, drive DriveServiceInterface) *PhotoLoader {
	return &PhotoLoader{
		documentsDir: documentsDir,
		drive:        drive,
		httpClient:   &http.Client{Timeout: photoHTTPTimeout},
	}
}

// Ensure PhotoLoader implements PhotoLoaderInterface
var _ PhotoLoaderInterface = (*PhotoLoader)(nil)

// Load fetches and decodes the photo behind ref
func (pl *PhotoLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNoPhoto
	}

	data, err := pl.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}
	return img, nil
}

func (pl *PhotoLoader) fetch(ctx context.Context, ref string) ([]byte, error) {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(lower, drivePrefix):
		if pl.drive == nil {
			return nil, ErrDriveDisabled
		}
		return pl.drive.DownloadImage(ctx, strings.TrimSpace(ref[len(drivePrefix):]))
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return pl.fetchURL(ctx, ref)
	default:
		return pl.readDocument(ref)
	}
}

// decodeDataURI accepts base64 data URIs such as data:image/png;base64,....
func decodeDataURI(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(ref, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	if !strings.HasSuffix(strings.ToLower(header), ";base64") {
		return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return data, nil
}

// readDocument reads a file from the documents directory. The reference is
// treated as a path relative to that directory and cannot climb out of it.
func (pl *PhotoLoader) readDocument(ref string) ([]byte, error) {
	if pl.documentsDir == "" {
		return nil, fmt.Errorf("documents directory not configured for photo %q", ref)
	}
	path := filepath.Join(pl.documentsDir, filepath.Clean("/"+filepath.ToSlash(ref)))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return data, nil
}

func (pl *PhotoLoader) fetchURL(ctx context.Context, ref string) ([]byte, error) {
	if _, err := url.Parse(ref); err != nil {
		return nil, fmt.Errorf("invalid photo url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build photo request: %w", err)
	}
	resp, err := pl.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch photo: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}
	return data, nil
}
