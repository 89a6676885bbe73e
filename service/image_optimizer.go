package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	defaultPreviewCacheDir = "cache/previews"
	// Quality settings
	qualityPreview = 80
	// Size settings
	minPreviewWidth = 64
	maxPreviewWidth = 2400
)

// DesignPreviewCache serves viewport-sized JPEG copies of design images, cached on disk
type DesignPreviewCache struct {
	dir string
}

// NewDesignPreviewCache creates a cache rooted at dir (PREVIEW_CACHE_DIR)
func NewDesignPreviewCache(dir string) *DesignPreviewCache {
	if dir == "" {
		dir = defaultPreviewCacheDir
	}
	return &DesignPreviewCache{dir: dir}
}

// EnsureCacheDir ensures the cache directory exists, creates it if it doesn't
func (c *DesignPreviewCache) EnsureCacheDir() error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// GetCachePath returns the cache file path for a design and target width
func (c *DesignPreviewCache) GetCachePath(designData []byte, width int) string {
	sum := sha256.Sum256(designData)
	filename := fmt.Sprintf("design_%s_%d.jpg", hex.EncodeToString(sum[:8]), width)
	return filepath.Join(c.dir, filename)
}

// CacheExists checks if a cached image exists
func CacheExists(cachePath string) bool {
	_, err := os.Stat(cachePath)
	return err == nil
}

// ReadFromCache reads an image from the cache
func ReadFromCache(cachePath string) ([]byte, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read from cache: %w", err)
	}
	return data, nil
}

// SaveToCache saves an image to the cache
func SaveToCache(cachePath string, imageData []byte) error {
	dir := filepath.Dir(cachePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := os.WriteFile(cachePath, imageData, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}

	log.Printf("✓ Image cached: %s", cachePath)
	return nil
}

// Preview returns the design scaled down to width, from cache when possible.
// Designs narrower than width are only re-encoded.
func (c *DesignPreviewCache) Preview(designData []byte, width int) ([]byte, error) {
	width = clampPreviewWidth(width)
	cachePath := c.GetCachePath(designData, width)
	if CacheExists(cachePath) {
		if data, err := ReadFromCache(cachePath); err == nil {
			return data, nil
		}
		log.Printf("⚠️  Cached preview unreadable, regenerating: %s", cachePath)
	}

	data, err := OptimizeImage(designData, width, qualityPreview)
	if err != nil {
		return nil, err
	}
	if err := SaveToCache(cachePath, data); err != nil {
		log.Printf("⚠️  %v", err)
	}
	return data, nil
}

func clampPreviewWidth(width int) int {
	if width <= 0 || width > maxPreviewWidth {
		return maxPreviewWidth
	}
	if width < minPreviewWidth {
		return minPreviewWidth
	}
	return width
}

// OptimizeImage converts an image to JPEG, shrinking it to maxWidth while keeping
// the aspect ratio
func OptimizeImage(imageData []byte, maxWidth int, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxWidth {
		log.Printf("🔄 Resizing image: %dx%d -> width %d", bounds.Dx(), bounds.Dy(), maxWidth)
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode to JPEG: %w", err)
	}

	log.Printf("✓ Image optimized: width=%d, quality=%d, output_size=%d bytes", img.Bounds().Dx(), quality, buf.Len())
	return buf.Bytes(), nil
}
