// Package render draws face boxes and labels onto a fixed-size transparent canvas.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/face-emotion/pkg/emotion"
	"github.com/menta2k/face-emotion/pkg/types"
)

// Style controls how faces are drawn
type Style struct {
	Color      color.NRGBA
	TextOffset int // horizontal and first-line vertical offset from the face corner
	LineHeight int
}

// DefaultStyle matches a plain 2D canvas: black 1px strokes, labels 10px apart
func DefaultStyle() Style {
	return Style{
		Color:      color.NRGBA{0, 0, 0, 255},
		TextOffset: 10,
		LineHeight: 10,
	}
}

// Canvas is a fixed-size drawing surface. Render calls are serialized, the last one wins.
type Canvas struct {
	mu    sync.Mutex
	img   *image.NRGBA
	style Style
	face  font.Face
	seq   uint64
}

// NewCanvas creates a transparent canvas of the given size
func NewCanvas(width, height int, style Style) *Canvas {
	if style.LineHeight <= 0 {
		style.LineHeight = DefaultStyle().LineHeight
	}
	return &Canvas{
		img:   image.NewNRGBA(image.Rect(0, 0, width, height)),
		style: style,
		face:  basicfont.Face7x13,
	}
}

// Bounds returns the canvas rectangle
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Clear resets the whole canvas to transparent
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

func (c *Canvas) clear() {
	draw.Draw(c.img, c.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// Render clears the canvas, draws every face and returns a copy of the result
func (c *Canvas) Render(faces []types.FaceAnalysis) *image.NRGBA {
	img, _ := c.RenderSeq(faces)
	return img
}

// RenderSeq is Render plus the render's sequence number. Numbers start at 1 and
// grow with every render, so the highest one is what the canvas currently shows.
func (c *Canvas) RenderSeq(faces []types.FaceAnalysis) (*image.NRGBA, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clear()
	for _, f := range faces {
		c.drawFace(f)
	}
	c.seq++
	return c.snapshot(), c.seq
}

// Image returns a copy of the current canvas
func (c *Canvas) Image() *image.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Canvas) snapshot() *image.NRGBA {
	out := image.NewNRGBA(c.img.Bounds())
	copy(out.Pix, c.img.Pix)
	return out
}

func (c *Canvas) drawFace(f types.FaceAnalysis) {
	r := f.Face.FaceRectangle
	x := r.Left + c.style.TextOffset
	y := r.Top + c.style.TextOffset
	for i, line := range Labels(f) {
		c.drawText(line, x, y+i*c.style.LineHeight)
	}
	c.drawRect(r)
}

// drawText places the text baseline at y
func (c *Canvas) drawText(s string, x, y int) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(c.style.Color),
		Face: c.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawRect strokes a 1px unfilled rectangle
func (c *Canvas) drawRect(r types.FaceRectangle) {
	if r.Width <= 0 || r.Height <= 0 {
		return
	}
	x0, y0 := r.Left, r.Top
	x1, y1 := r.Left+r.Width, r.Top+r.Height
	drawHLine(c.img, y0, x0, x1+1, c.style.Color)
	drawHLine(c.img, y1, x0, x1+1, c.style.Color)
	drawVLine(c.img, x0, y0, y1+1, c.style.Color)
	drawVLine(c.img, x1, y0, y1+1, c.style.Color)
}

// Labels returns the three text lines drawn next to a face: age, gender and dominant emotion
func Labels(f types.FaceAnalysis) []string {
	attrs := f.Face.FaceAttributes
	lines := []string{
		"Age " + strconv.FormatFloat(attrs.Age, 'f', -1, 64),
		attrs.Gender,
	}
	top, ok := f.TopEmotion()
	if !ok {
		top = emotion.Top(attrs.Emotion)
	}
	lines = append(lines, fmt.Sprintf("%s - %d%%", top.Emotion, emotion.Percent(top.Value)))
	return lines
}

// ParseHexColor parses #rgb or #rrggbb
func ParseHexColor(s string) (color.NRGBA, error) {
	c := color.NRGBA{A: 255}
	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return c, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return c, fmt.Errorf("invalid color %q: %w", s, err)
	}
	c.R = uint8(v >> 16)
	c.G = uint8(v >> 8)
	c.B = uint8(v)
	return c, nil
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	for x := x0; x < x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	for y := y0; y < y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}
