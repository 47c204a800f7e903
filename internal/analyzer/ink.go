package analyzer

import (
	"image"
	"image/color"
	"sort"
)

// InkDetector finds text drawn in a light colour on a dark background.
// Glyphs closer than Gap pixels horizontally are merged into one block, so
// with the default gap a block is roughly one word.
type InkDetector struct {
	Threshold uint8 // luminance above which a pixel counts as ink
	Gap       int   // horizontal merge distance in pixels
	MinArea   int   // blocks smaller than this are dropped as noise
}

func NewInkDetector() *InkDetector {
	return &InkDetector{
		Threshold: 128,
		Gap:       6,
		MinArea:   4,
	}
}

// Detect returns ink blocks ordered right to left, the reading order of the
// verses this tool draws.
func (d *InkDetector) Detect(img image.Image) ([]Block, error) {
	mask := inkMask(img, d.Threshold)
	if d.Gap > 0 {
		mask = dilateHorizontal(mask, d.Gap)
	}

	blockType := "word"
	if d.Gap == 0 {
		blockType = "glyph"
	}

	var blocks []Block
	for _, rect := range findContours(mask) {
		if rect.Dx()*rect.Dy() < d.MinArea {
			continue
		}
		blocks = append(blocks, Block{Rect: rect, Type: blockType, Confidence: 0.9})
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Rect.Max.X > blocks[j].Rect.Max.X
	})
	return blocks, nil
}

// InkBounds is the smallest rectangle containing every ink pixel, or the
// empty rectangle for a blank frame.
func InkBounds(img image.Image, threshold uint8) image.Rectangle {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if luminance(img.At(x, y)) <= threshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < minX {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

func luminance(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}

func inkMask(img image.Image, threshold uint8) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if luminance(img.At(x, y)) > threshold {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

// dilateHorizontal grows every lit pixel by gap/2 on each side so that
// letters of one word touch while inter-word spaces stay open.
func dilateHorizontal(img *image.Gray, gap int) *image.Gray {
	bounds := img.Bounds()
	result := image.NewGray(bounds)
	half := (gap + 1) / 2

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.GrayAt(x, y).Y == 0 {
				continue
			}
			for dx := -half; dx <= half; dx++ {
				if nx := x + dx; nx >= bounds.Min.X && nx < bounds.Max.X {
					result.SetGray(nx, y, color.Gray{Y: 255})
				}
			}
		}
	}
	return result
}

// findContours finds bounding rectangles of connected lit regions
func findContours(img *image.Gray) []image.Rectangle {
	bounds := img.Bounds()
	visited := make([][]bool, bounds.Dy())
	for i := range visited {
		visited[i] = make([]bool, bounds.Dx())
	}

	var contours []image.Rectangle
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.GrayAt(x, y).Y > 128 && !visited[y-bounds.Min.Y][x-bounds.Min.X] {
				contours = append(contours, floodFill(img, visited, x, y))
			}
		}
	}
	return contours
}

// floodFill walks one 8-connected component and returns its bounds.
// Diagonal steps keep dots and diacritics attached to their letter.
func floodFill(img *image.Gray, visited [][]bool, startX, startY int) image.Rectangle {
	bounds := img.Bounds()
	minX, minY := startX, startY
	maxX, maxY := startX, startY

	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := p.X, p.Y
		if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		if visited[y-bounds.Min.Y][x-bounds.Min.X] || img.GrayAt(x, y).Y <= 128 {
			continue
		}
		visited[y-bounds.Min.Y][x-bounds.Min.X] = true

		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx != 0 || dy != 0 {
					stack = append(stack, image.Point{X: x + dx, Y: y + dy})
				}
			}
		}
	}

	return image.Rect(minX, minY, maxX+1, maxY+1)
}
