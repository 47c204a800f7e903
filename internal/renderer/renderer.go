// Package renderer paints reveal states onto fixed-size RGBA frames.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/verse2video/internal/config"
	"github.com/ivlev/verse2video/internal/reveal"
	"github.com/ivlev/verse2video/internal/system"
)

// Renderer draws right-aligned text on a black canvas. It owns a font.Face,
// which is not safe for concurrent use: give each worker its own Renderer.
type Renderer struct {
	face   font.Face
	fill   *image.Uniform
	bounds image.Rectangle
	origin image.Point
	ascent fixed.Int26_6
}

func NewRenderer(f *Font, cfg config.Render) (*Renderer, error) {
	if f == nil {
		return nil, fmt.Errorf("new renderer: no font")
	}
	face, err := opentype.NewFace(f.otf, &opentype.FaceOptions{
		Size:    cfg.FontSize,
		DPI:     cfg.DPI,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}

	c := cfg.TextColor
	return &Renderer{
		face:   face,
		fill:   image.NewUniform(color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}),
		bounds: image.Rect(0, 0, cfg.Width, cfg.Height),
		origin: image.Pt(cfg.Width-cfg.RightMargin, cfg.Height/2),
		ascent: face.Metrics().Ascent,
	}, nil
}

func (r *Renderer) Close() error { return r.face.Close() }

func (r *Renderer) Bounds() image.Rectangle { return r.bounds }

// Origin is the anchor the text hangs from: its right edge and the top of the
// line box.
func (r *Renderer) Origin() image.Point { return r.origin }

// TextWidth is the advance width of text in the face used for drawing.
func (r *Renderer) TextWidth(text string) fixed.Int26_6 {
	return font.MeasureString(r.face, text)
}

// Render paints state onto a pooled frame. Hand the frame back with
// system.PutFrame once it has been written.
func (r *Renderer) Render(state reveal.State) *image.RGBA {
	dst := system.GetFrame(r.bounds)
	r.RenderText(state.Text(), dst)
	return dst
}

// RenderText clears dst to opaque black and draws text so that its advance
// ends exactly at the origin's x. It returns the pen position after the last
// glyph.
func (r *Renderer) RenderText(text string, dst *image.RGBA) fixed.Point26_6 {
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	// the origin is the top of the line box, the pen sits on the baseline
	dot := fixed.Point26_6{
		X: fixed.I(r.origin.X) - r.TextWidth(text),
		Y: fixed.I(r.origin.Y) + r.ascent,
	}
	if text == "" {
		return dot
	}

	d := font.Drawer{Dst: dst, Src: r.fill, Face: r.face, Dot: dot}
	d.DrawString(text)
	return d.Dot
}
