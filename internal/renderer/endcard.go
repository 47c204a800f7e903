package renderer

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/verse2video/internal/system"
)

// RenderEndCard draws a QR code of content centred on a black frame. The code
// keeps its white quiet zone so phones can scan it off the video.
func (r *Renderer) RenderEndCard(content string) (*image.RGBA, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("end card: %w", err)
	}

	side := min(r.bounds.Dx(), r.bounds.Dy()) * 2 / 3
	code := q.Image(side)

	dst := system.GetFrame(r.bounds)
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	cb := code.Bounds()
	at := image.Pt((r.bounds.Dx()-cb.Dx())/2, (r.bounds.Dy()-cb.Dy())/2)
	draw.Draw(dst, cb.Add(at), code, cb.Min, draw.Src)
	return dst, nil
}
