package canvas

import (
	"bytes"
	"context"
	"image/color"
	"testing"

	"pkt.systems/loquax/schema"
)

func TestNewDefaultsSize(t *testing.T) {
	c := New(0, 0)
	if c.Width() != DefaultWidth || c.Height() != DefaultHeight {
		t.Fatalf("size = %dx%d", c.Width(), c.Height())
	}
	if len(c.cells) != DefaultWidth*DefaultHeight {
		t.Fatalf("cells = %d", len(c.cells))
	}
}

func TestLineDrawsDiagonal(t *testing.T) {
	c := New(8, 8)
	c.Line(0, 0, 3, 3, 5, 0)
	for i := 0; i <= 3; i++ {
		if got := c.cells[c.index(i, i)]; got != 5 {
			t.Fatalf("cell (%d,%d) = %d", i, i, got)
		}
	}
	if got := c.cells[c.index(0, 1)]; got != 0 {
		t.Fatalf("off-line cell = %d", got)
	}
}

func TestLineRespectsTargetColour(t *testing.T) {
	c := New(8, 8)
	c.cells[c.index(1, 1)] = 2
	c.Line(0, 0, 3, 3, 5, 0)
	if got := c.cells[c.index(1, 1)]; got != 2 {
		t.Fatalf("protected cell overwritten, = %d", got)
	}
	if got := c.cells[c.index(2, 2)]; got != 5 {
		t.Fatalf("unprotected cell = %d", got)
	}
}

func TestLineNegativeTargetDrawsOverAnything(t *testing.T) {
	c := New(8, 8)
	c.cells[c.index(1, 1)] = 2
	c.Line(0, 0, 3, 3, 5, -1)
	if got := c.cells[c.index(1, 1)]; got != 5 {
		t.Fatalf("cell = %d", got)
	}
}

func TestLineClipsOutOfBounds(t *testing.T) {
	c := New(4, 4)
	c.Line(-2, 1, 6, 1, 3, -1)
	for x := 0; x < 4; x++ {
		if got := c.cells[c.index(x, 1)]; got != 3 {
			t.Fatalf("cell (%d,1) = %d", x, got)
		}
	}
}

func TestFillReplacesEnclosedRegion(t *testing.T) {
	c := New(8, 8)
	// Vertical wall at x=4 splits the canvas.
	c.Line(4, 0, 4, 7, 1, -1)
	c.Fill(0, 0, 3, 0)
	if got := c.cells[c.index(2, 3)]; got != 3 {
		t.Fatalf("left region = %d", got)
	}
	if got := c.cells[c.index(4, 3)]; got != 1 {
		t.Fatalf("wall = %d", got)
	}
	if got := c.cells[c.index(6, 3)]; got != 0 {
		t.Fatalf("right region = %d", got)
	}
}

func TestFillOnlyTargetColour(t *testing.T) {
	c := New(4, 4)
	c.Fill(0, 0, 3, 7)
	for i, cell := range c.cells {
		if cell != 0 {
			t.Fatalf("cell %d changed to %d", i, cell)
		}
	}
}

func TestFillSameColourIsNoop(t *testing.T) {
	c := New(4, 4)
	c.Fill(0, 0, 0, 0)
	for i, cell := range c.cells {
		if cell != 0 {
			t.Fatalf("cell %d = %d", i, cell)
		}
	}
}

func TestSetColorMapsDefaultColour(t *testing.T) {
	c := New(2, 1)
	c.SetColor(2, 1)
	c.cells[0] = 2
	img := c.Render()
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Fatalf("mapped pixel = %v", got)
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{}) {
		t.Fatalf("unmapped pixel = %v", got)
	}
}

func TestSetColorIgnoresOutOfRange(t *testing.T) {
	c := New(2, 1)
	c.SetColor(99, 1)
	c.SetColor(1, 42)
	for _, p := range c.palette {
		if p != 0 {
			t.Fatalf("palette changed: %08x", p)
		}
	}
}

func TestPlaceBitmapComposites(t *testing.T) {
	c := New(4, 4)
	bm := &schema.Bitmap{
		ID:      7,
		Width:   2,
		Height:  1,
		Palette: []schema.RGB{0xFF0000, 0x00FF00},
		Pixels:  []byte{0, 1},
	}
	c.PlaceBitmap(bm, 1, 2)
	img := c.Render()
	if got := img.RGBAAt(1, 2); got != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Fatalf("first pixel = %v", got)
	}
	if got := img.RGBAAt(2, 2); got != (color.RGBA{G: 0xFF, A: 0xFF}) {
		t.Fatalf("second pixel = %v", got)
	}
}

func TestClearResetsCellsAndPlacements(t *testing.T) {
	c := New(4, 4)
	c.Line(0, 0, 3, 0, 5, -1)
	c.PlaceBitmap(&schema.Bitmap{Width: 1, Height: 1, Palette: []schema.RGB{0xFFFFFF}, Pixels: []byte{0}}, 0, 0)
	c.Clear()
	for i, cell := range c.cells {
		if cell != 0 {
			t.Fatalf("cell %d = %d", i, cell)
		}
	}
	if len(c.placements) != 0 {
		t.Fatalf("placements = %d", len(c.placements))
	}
}

func TestApplyFoldsGraphicsTags(t *testing.T) {
	c := New(8, 8)
	for _, raw := range []string{
		"#[setcolor 1 7]",
		"#[line 0 0 7 0 1 0]",
		"#[fill 0 1 1 0]",
	} {
		tag, err := schema.ParseTag(raw)
		if err != nil {
			t.Fatalf("ParseTag(%q): %v", raw, err)
		}
		if !c.Apply(tag) {
			t.Fatalf("tag %q not consumed", raw)
		}
	}
	if got := c.cells[c.index(3, 0)]; got != 1 {
		t.Fatalf("line cell = %d", got)
	}
	if got := c.cells[c.index(3, 4)]; got != 1 {
		t.Fatalf("filled cell = %d", got)
	}
	img := c.Render()
	if got := img.RGBAAt(3, 0); got != (color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}) {
		t.Fatalf("rendered pixel = %v", got)
	}

	clear, err := schema.ParseTag("#[clear]")
	if err != nil {
		t.Fatalf("ParseTag clear: %v", err)
	}
	if !c.Apply(clear) {
		t.Fatalf("clear not consumed")
	}
	if got := c.cells[c.index(3, 0)]; got != 0 {
		t.Fatalf("cell after clear = %d", got)
	}

	payload, err := schema.ParseTag("#[pixels 7 0x00 0x01]")
	if err != nil {
		t.Fatalf("ParseTag pixels: %v", err)
	}
	if c.Apply(payload) {
		t.Fatalf("payload tag should be left to the caller")
	}
}

func TestApplyImageSizeResizes(t *testing.T) {
	c := New(8, 8)
	tag, err := schema.ParseTag("#[imgsize 16 12]")
	if err != nil {
		t.Fatalf("ParseTag: %v", err)
	}
	if !c.Apply(tag) {
		t.Fatalf("imgsize not consumed")
	}
	if c.Width() != 16 || c.Height() != 12 {
		t.Fatalf("size = %dx%d", c.Width(), c.Height())
	}
}

func TestEncodePNG(t *testing.T) {
	c := New(4, 4)
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	sig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if !bytes.HasPrefix(buf.Bytes(), sig) {
		t.Fatalf("missing png signature: % x", buf.Bytes()[:8])
	}
}

type stubResolver struct {
	bitmaps map[schema.BitmapID]*schema.Bitmap
	asked   []schema.BitmapID
}

func (r *stubResolver) RequestBitmap(_ context.Context, id schema.BitmapID) (*schema.Bitmap, error) {
	r.asked = append(r.asked, id)
	bm, ok := r.bitmaps[id]
	if !ok {
		return nil, schema.ErrBitmapUnavailable
	}
	return bm, nil
}

func TestApplyAllResolvesPlacements(t *testing.T) {
	c := New(8, 8)
	resolver := &stubResolver{bitmaps: map[schema.BitmapID]*schema.Bitmap{
		3: {ID: 3, Width: 2, Height: 1, Palette: []schema.RGB{0xFF0000, 0x00FF00}, Pixels: []byte{0, 1}},
	}}
	tags := []schema.Tag{
		{Kind: schema.TagSetColor, Colour: 1, Index: 7},
		{Kind: schema.TagLine, X1: 0, Y1: 0, X2: 7, Y2: 0, Colour1: 1},
		{Kind: schema.TagShowBitmap, Bitmap: 3, X1: 1, Y1: 2},
	}
	if err := c.ApplyAll(context.Background(), tags, resolver); err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	if len(resolver.asked) != 1 || resolver.asked[0] != 3 {
		t.Fatalf("asked = %v", resolver.asked)
	}
	img := c.Render()
	if got := img.RGBAAt(1, 2); got != (color.RGBA{R: 0xFF, A: 0xFF}) {
		t.Fatalf("placed pixel = %v", got)
	}
	if got := img.RGBAAt(3, 0); got != (color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}) {
		t.Fatalf("line pixel = %v", got)
	}
}

func TestApplyAllSkipsUnresolvable(t *testing.T) {
	c := New(8, 8)
	resolver := &stubResolver{}
	tags := []schema.Tag{
		{Kind: schema.TagShowBitmap, Bitmap: 9, X1: 0, Y1: 0},
		{Kind: schema.TagSetColor, Colour: 2, Index: 1},
	}
	err := c.ApplyAll(context.Background(), tags, resolver)
	if err == nil {
		t.Fatalf("expected resolve error")
	}
	if c.palette[2] == 0 {
		t.Fatalf("later tag not applied")
	}
}
