package analyzer

import "fmt"

// NewDetector creates a detector based on the specified variant
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "ink", "":
		return NewInkDetector(), nil
	case "glyph":
		d := NewInkDetector()
		d.Gap = 0
		return d, nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
