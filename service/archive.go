package service

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// archiveBuilder collects named entries and writes them as one ZIP.
// Adding a name twice replaces the content; the entry keeps its first position.
type archiveBuilder struct {
	order   []string
	entries map[string][]byte
}

func newArchiveBuilder() *archiveBuilder {
	return &archiveBuilder{entries: make(map[string][]byte)}
}

// Add stores data under name
func (a *archiveBuilder) Add(name string, data []byte) {
	if _, exists := a.entries[name]; !exists {
		a.order = append(a.order, name)
	}
	a.entries[name] = data
}

// Len is the number of distinct entries
func (a *archiveBuilder) Len() int {
	return len(a.order)
}

// Finalize writes the archive into w
func (a *archiveBuilder) Finalize(w io.Writer, modified time.Time) error {
	zw := zip.NewWriter(w)
	for _, name := range a.order {
		// PNG is already compressed
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := entry.Write(a.entries[name]); err != nil {
			return fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}
