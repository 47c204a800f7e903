package analyzer

import "image"

// Block is a region of lit pixels found on a rendered frame.
type Block struct {
	Rect       image.Rectangle
	Type       string  // "word", "glyph", "unknown"
	Confidence float64 // 0.0-1.0
}

// Detector locates drawn content on a frame.
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}
