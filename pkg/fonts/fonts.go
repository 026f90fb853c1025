// Package fonts loads the single font face used for all bar text. Font
// file discovery is the configuration's concern; this package only turns a
// path into a usable face, with a built-in bitmap fallback so the bar can
// always render something.
package fonts

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Fallback returns the built-in bitmap face used when no font file is
// configured or loading fails.
func Fallback() font.Face {
	return basicfont.Face7x13
}

// Load reads an OpenType font file and returns a face at the given point
// size. An empty path returns the fallback face. A zero size defaults to
// 14 points.
func Load(path string, size float64) (font.Face, error) {
	if path == "" {
		return Fallback(), nil
	}
	if size <= 0 {
		size = 14
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face for %s: %w", path, err)
	}
	return face, nil
}
