package caption

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	bottomMargin = 80
	boxPadding   = 15
)

var boxColor = color.NRGBA{R: 0, G: 0, B: 0, A: 180}

// Compositor draws a caption block at the bottom of frames. A single face
// is shared, so Compose calls are serialized.
type Compositor struct {
	mu        sync.Mutex
	face      font.Face
	lineLimit int
}

// NewCompositor loads fontPath at DefaultFontSize. Fonts that cannot be
// loaded fall back to basicfont.Face7x13 so rendering never fails on them.
func NewCompositor(fontPath string, logger *slog.Logger) *Compositor {
	face, err := LoadFace(fontPath, DefaultFontSize)
	if err != nil {
		if logger != nil {
			logger.Warn("caption font unavailable, using built-in face", "font", fontPath, "error", err)
		}
		face = basicfont.Face7x13
	}
	return NewCompositorWithFace(face)
}

func NewCompositorWithFace(face font.Face) *Compositor {
	return &Compositor{face: face, lineLimit: DefaultLineLimit}
}

// Face returns the active font face.
func (c *Compositor) Face() font.Face { return c.face }

// Layout is the placement of a caption on a frame.
type Layout struct {
	Lines []string
	// Origin is the top-left of the text block.
	Origin image.Point
	Width  int
	Height int
	// Box is the padded background, clipped to the frame.
	Box image.Rectangle
}

// Layout computes where text would be drawn on a frame with the given bounds.
// ok is false when there is nothing to draw.
func (c *Compositor) Layout(bounds image.Rectangle, text string) (Layout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout(bounds, text)
}

func (c *Compositor) layout(bounds image.Rectangle, text string) (Layout, bool) {
	lines := Wrap(text, c.lineLimit)
	if len(lines) == 0 {
		return Layout{}, false
	}

	lineHeight := c.face.Metrics().Height.Ceil()
	width := 0
	for _, line := range lines {
		if w := font.MeasureString(c.face, line).Ceil(); w > width {
			width = w
		}
	}
	height := lineHeight * len(lines)

	origin := image.Point{
		X: bounds.Min.X + (bounds.Dx()-width)/2,
		Y: bounds.Min.Y + bounds.Dy() - height - bottomMargin,
	}
	box := image.Rect(
		origin.X-boxPadding,
		origin.Y-boxPadding,
		origin.X+width+boxPadding,
		origin.Y+height+boxPadding,
	).Intersect(bounds)

	return Layout{Lines: lines, Origin: origin, Width: width, Height: height, Box: box}, true
}

// Compose returns a copy of frame with text drawn on it. frame is not
// modified and only pixels inside the caption box differ from it.
func (c *Compositor) Compose(frame image.Image, text string) *image.RGBA {
	bounds := frame.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, frame, bounds.Min, draw.Src)

	c.mu.Lock()
	defer c.mu.Unlock()

	layout, ok := c.layout(bounds, text)
	if !ok || layout.Box.Empty() {
		return dst
	}

	draw.Draw(dst, layout.Box, image.NewUniform(boxColor), image.Point{}, draw.Over)

	// Drawing into the sub-image clips glyphs to the box.
	boxImg := dst.SubImage(layout.Box).(*image.RGBA)
	drawer := font.Drawer{Dst: boxImg, Src: image.White, Face: c.face}
	metrics := c.face.Metrics()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	for i, line := range layout.Lines {
		lineWidth := font.MeasureString(c.face, line).Ceil()
		x := layout.Origin.X + (layout.Width-lineWidth)/2
		y := layout.Origin.Y + i*lineHeight + ascent
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(line)
	}
	return dst
}
