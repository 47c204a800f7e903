package renderer

import (
	"fmt"
	"os"

	"golang.org/x/image/font/opentype"
)

// Font is a parsed TrueType/OpenType font. It is immutable and may be shared
// by any number of renderers.
type Font struct {
	otf  *opentype.Font
	Path string
}

// LoadFont reads and parses the font file at path.
func LoadFont(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	f, err := ParseFont(data)
	if err != nil {
		return nil, fmt.Errorf("load font %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

func ParseFont(data []byte) (*Font, error) {
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Font{otf: otf}, nil
}
