package render

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// DefaultFontFamily is used when a template names a family the registry does not know.
// Card text is drawn semibold, so the bold Go face is the closest built-in match.
const DefaultFontFamily = "Go Bold"

type faceKey struct {
	family string
	size   float64
}

// FontRegistry holds parsed fonts by family name. Parsed fonts are shared;
// faces are not, so every Workspace opens its own.
type FontRegistry struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
	// faces used by MeasureText only, guarded by mu
	measureFaces map[faceKey]font.Face
}

// NewFontRegistry returns a registry preloaded with the Go font family
func NewFontRegistry() *FontRegistry {
	r := &FontRegistry{
		fonts:        make(map[string]*opentype.Font),
		measureFaces: make(map[faceKey]font.Face),
	}
	builtin := map[string][]byte{
		"Go Bold":   gobold.TTF,
		"Go":        goregular.TTF,
		"Go Medium": gomedium.TTF,
		"Go Mono":   gomono.TTF,
	}
	for name, data := range builtin {
		if err := r.Register(name, data); err != nil {
			// embedded fonts always parse; a failure here is a broken build
			panic(fmt.Sprintf("render: builtin font %s: %v", name, err))
		}
	}
	return r
}

// Register parses a TrueType/OpenType font and stores it under name
func (r *FontRegistry) Register(name string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse font %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fonts[name] = f
	return nil
}

// LoadDir registers every .ttf/.otf file in dir. Each font is available under its
// file name (without extension) and under the family name embedded in the font.
func (r *FontRegistry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read font directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("⚠️  Skipping font %s: %v", path, err)
			continue
		}

		base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := r.Register(base, data); err != nil {
			log.Printf("⚠️  Skipping font %s: %v", path, err)
			continue
		}
		if family := r.familyName(base); family != "" && !r.Has(family) {
			r.mu.Lock()
			r.fonts[family] = r.fonts[base]
			r.mu.Unlock()
		}
		loaded++
	}

	log.Printf("✓ Loaded %d fonts from %s", loaded, dir)
	return loaded, nil
}

func (r *FontRegistry) familyName(registered string) string {
	r.mu.Lock()
	f := r.fonts[registered]
	r.mu.Unlock()
	if f == nil {
		return ""
	}
	name, err := f.Name(nil, sfnt.NameIDFamily)
	if err != nil {
		return ""
	}
	return name
}

// Has reports whether a family is registered
func (r *FontRegistry) Has(family string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.fonts[family]
	return ok
}

// Families lists registered family names, sorted
func (r *FontRegistry) Families() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.fonts))
	for name := range r.fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookup falls back to DefaultFontFamily for unknown names. Callers hold mu.
func (r *FontRegistry) lookup(family string) *opentype.Font {
	if f, ok := r.fonts[family]; ok {
		return f
	}
	return r.fonts[DefaultFontFamily]
}

// NewFace opens a face at size pixels. The caller owns and closes it.
func (r *FontRegistry) NewFace(family string, size float64) (font.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newFace(family, size)
}

func (r *FontRegistry) newFace(family string, size float64) (font.Face, error) {
	f := r.lookup(family)
	if f == nil {
		return nil, fmt.Errorf("no font available for family %q", family)
	}
	// at 72 DPI one point is one pixel, so Size is the pixel size
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face %s@%.1f: %w", family, size, err)
	}
	return face, nil
}

// MeasureText returns the advance width of text in pixels
func (r *FontRegistry) MeasureText(family string, size float64, text string) float64 {
	if text == "" || size <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := faceKey{family: family, size: size}
	face, ok := r.measureFaces[key]
	if !ok {
		var err error
		face, err = r.newFace(family, size)
		if err != nil {
			log.Printf("⚠️  MeasureText: %v", err)
			return 0
		}
		r.measureFaces[key] = face
	}
	return fixedToFloat(font.MeasureString(face, text))
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
