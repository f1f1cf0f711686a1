// Package canvas renders the graphics tag stream into a palette raster
// scene. Cells hold palette slot ids; slots map to a small set of fixed
// colours remapped by setcolor tags. Decoded bitmaps are composited on
// top at render time.
package canvas

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"pkt.systems/loquax/schema"
)

const (
	// DefaultWidth and DefaultHeight match the line-art picture size of
	// the Level 9 engines.
	DefaultWidth  = 160
	DefaultHeight = 96

	paletteSlots = 64
)

// defaultColours are the fixed colour values setcolor slots resolve to.
var defaultColours = [...]schema.RGB{
	0x000000,
	0xFF0000,
	0x30E830,
	0xFFFF00,
	0x0000FF,
	0xA06800,
	0x00FFFF,
	0xFFFFFF,
}

type placement struct {
	bitmap *schema.Bitmap
	x, y   int
}

// Canvas is a cell buffer in row-major order with origin top-left.
// It is not safe for concurrent use; callers serialize access the same
// way they serialize turns.
type Canvas struct {
	width, height int
	cells         []byte
	// palette holds packed RGBA per slot; unmapped slots stay
	// transparent.
	palette    [paletteSlots]uint32
	placements []placement
}

// New returns a cleared canvas. Non-positive dimensions fall back to the
// defaults.
func New(width, height int) *Canvas {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Canvas{
		width:  width,
		height: height,
		cells:  make([]byte, width*height),
	}
}

// Width reports the cell grid width.
func (c *Canvas) Width() int { return c.width }

// Height reports the cell grid height.
func (c *Canvas) Height() int { return c.height }

func (c *Canvas) inBounds(x, y int) bool {
	return x >= 0 && x < c.width && y >= 0 && y < c.height
}

func (c *Canvas) index(x, y int) int {
	return y*c.width + x
}

// Clear resets every cell to slot zero and removes placed bitmaps.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = 0
	}
	c.placements = nil
}

// Resize reallocates the cell grid, clearing the scene. Matching or
// non-positive dimensions leave the canvas untouched.
func (c *Canvas) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if width == c.width && height == c.height {
		return
	}
	c.width = width
	c.height = height
	c.cells = make([]byte, width*height)
	c.placements = nil
}

// SetColor maps a palette slot to one of the default colours. Out of
// range slots and indices are ignored.
func (c *Canvas) SetColor(slot, index int) {
	if slot < 0 || slot >= paletteSlots {
		return
	}
	if index < 0 || index >= len(defaultColours) {
		return
	}
	c.palette[slot] = uint32(defaultColours[index])<<8 | 0xFF
}

// Line draws from (x0,y0) to (x1,y1) in colour col using Bresenham's
// algorithm. Only cells currently holding target are written; a negative
// target draws unconditionally.
func (c *Canvas) Line(x0, y0, x1, y1, col, target int) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if c.inBounds(x0, y0) {
			i := c.index(x0, y0)
			if target < 0 || int(c.cells[i]) == target {
				c.cells[i] = byte(col)
			}
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Fill flood-fills the region containing (x,y) with colour col. Only
// cells holding exactly target are replaced, stack-based scanline spans.
func (c *Canvas) Fill(x, y, col, target int) {
	if col == target {
		return
	}
	if !c.inBounds(x, y) {
		return
	}
	if int(c.cells[c.index(x, y)]) != target {
		return
	}
	type point struct{ x, y int }
	stack := []point{{x, y}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !c.inBounds(p.x, p.y) {
			continue
		}
		if int(c.cells[c.index(p.x, p.y)]) != target {
			continue
		}
		left := p.x
		for left >= 0 && int(c.cells[c.index(left, p.y)]) == target {
			c.cells[c.index(left, p.y)] = byte(col)
			left--
		}
		left++
		right := p.x + 1
		for right < c.width && int(c.cells[c.index(right, p.y)]) == target {
			c.cells[c.index(right, p.y)] = byte(col)
			right++
		}
		right--
		for i := left; i <= right; i++ {
			if p.y-1 >= 0 && int(c.cells[c.index(i, p.y-1)]) == target {
				stack = append(stack, point{i, p.y - 1})
			}
			if p.y+1 < c.height && int(c.cells[c.index(i, p.y+1)]) == target {
				stack = append(stack, point{i, p.y + 1})
			}
		}
	}
}

// PlaceBitmap stamps a decoded bitmap at (x,y). The bitmap keeps its own
// palette and is composited over the cell raster when rendering.
func (c *Canvas) PlaceBitmap(bm *schema.Bitmap, x, y int) {
	if bm == nil || bm.Width <= 0 || bm.Height <= 0 {
		return
	}
	c.placements = append(c.placements, placement{bitmap: bm, x: x, y: y})
}

// Apply folds a graphics tag into canvas state. It reports whether the
// tag was consumed; bitmap payload tags are not, those are assembled and
// placed by the caller.
func (c *Canvas) Apply(tag schema.Tag) bool {
	switch tag.Kind {
	case schema.TagClear:
		c.Clear()
		return true
	case schema.TagSetColor:
		c.SetColor(tag.Colour, tag.Index)
		return true
	case schema.TagLine:
		c.Line(tag.X1, tag.Y1, tag.X2, tag.Y2, tag.Colour1, tag.Colour2)
		return true
	case schema.TagFill:
		c.Fill(tag.X1, tag.Y1, tag.Colour1, tag.Colour2)
		return true
	case schema.TagImageSize:
		c.Resize(tag.Width, tag.Height)
		return true
	}
	return false
}

// BitmapResolver turns a bitmap id into a decoded bitmap, asking the
// game side when the bitmap has not been seen yet.
type BitmapResolver interface {
	RequestBitmap(ctx context.Context, id schema.BitmapID) (*schema.Bitmap, error)
}

// ApplyAll folds a turn's graphics tags into the canvas, resolving
// bitmap placements through resolver. Unresolvable placements are
// skipped; the first resolve error is returned after the rest of the
// tags have been applied.
func (c *Canvas) ApplyAll(ctx context.Context, tags []schema.Tag, resolver BitmapResolver) error {
	var firstErr error
	for _, tag := range tags {
		if c.Apply(tag) {
			continue
		}
		if tag.Kind != schema.TagShowBitmap || resolver == nil {
			continue
		}
		bm, err := resolver.RequestBitmap(ctx, tag.Bitmap)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.PlaceBitmap(bm, tag.X1, tag.Y1)
	}
	return firstErr
}

// Render produces the scene as an RGBA image. Unmapped palette slots
// render transparent.
func (c *Canvas) Render() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			var p uint32
			if slot := int(c.cells[c.index(x, y)]); slot < paletteSlots {
				p = c.palette[slot]
			}
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(p >> 24),
				G: uint8(p >> 16),
				B: uint8(p >> 8),
				A: uint8(p),
			})
		}
	}
	for _, pl := range c.placements {
		compositeBitmap(img, pl)
	}
	return img
}

func compositeBitmap(img *image.RGBA, pl placement) {
	bm := pl.bitmap
	for py := 0; py < bm.Height; py++ {
		for px := 0; px < bm.Width; px++ {
			pos := py*bm.Width + px
			if pos >= len(bm.Pixels) {
				return
			}
			idx := int(bm.Pixels[pos])
			if idx >= len(bm.Palette) {
				continue
			}
			rgb := uint32(bm.Palette[idx])
			img.SetRGBA(pl.x+px, pl.y+py, color.RGBA{
				R: uint8(rgb >> 16),
				G: uint8(rgb >> 8),
				B: uint8(rgb),
				A: 0xFF,
			})
		}
	}
}

// EncodePNG renders the scene and writes it as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.Render())
}

// WritePNG renders the scene to a PNG file.
func (c *Canvas) WritePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	if err := c.EncodePNG(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
