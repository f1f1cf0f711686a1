package console

import "pkt.systems/loquax/schema"

// DeclareAndDump emits the three payload tags for one bitmap: geometry,
// palette, then row-major pixel indices. A missing source or an
// undecodable id is a silent no-op; the host degrades on its own.
func (c *Console) DeclareAndDump(id schema.BitmapID) {
	if c.cfg.Bitmaps == nil {
		return
	}
	bm, err := c.cfg.Bitmaps.DecodeBitmap(id)
	if err != nil || bm == nil {
		if c.log != nil {
			c.log.Trace("bitmap dump skipped", "bitmap", int(id), "err", err)
		}
		return
	}
	c.writeTag(schema.Tag{
		Kind:        schema.TagImage,
		Bitmap:      id,
		Width:       bm.Width,
		Height:      bm.Height,
		PaletteSize: len(bm.Palette),
	})
	c.writeTag(schema.Tag{Kind: schema.TagPalette, Bitmap: id, Palette: bm.Palette})
	c.writeTag(schema.Tag{Kind: schema.TagPixels, Bitmap: id, Pixels: bm.Pixels})
}

// ShowBitmap displays bitmap id at (x, y). The pixel payload travels at
// most once per id per session; the show tag goes out on every call.
func (c *Console) ShowBitmap(id schema.BitmapID, x, y int) {
	if !c.dumped[id] {
		c.DeclareAndDump(id)
		c.dumped[id] = true
	}
	c.writeTag(schema.Tag{Kind: schema.TagShowBitmap, Bitmap: id, X1: x, Y1: y})
}

// GraphicsMode announces a graphics mode change, followed by the current
// picture size when the interpreter reports one.
func (c *Console) GraphicsMode(mode int) {
	c.writeTag(schema.Tag{Kind: schema.TagGraphicsMode, Mode: mode})
	if c.cfg.PictureSize == nil {
		return
	}
	if w, h := c.cfg.PictureSize(); w != 0 && h != 0 {
		c.writeTag(schema.Tag{Kind: schema.TagImageSize, Width: w, Height: h})
	}
}

// ClearGraphics clears the host's graphics surface.
func (c *Console) ClearGraphics() {
	c.writeTag(schema.Tag{Kind: schema.TagClear})
}

// SetColour remaps one palette slot.
func (c *Console) SetColour(colour, index int) {
	c.writeTag(schema.Tag{Kind: schema.TagSetColor, Colour: colour, Index: index})
}

// DrawLine draws from (x1, y1) to (x2, y2) in colour1 over colour2.
func (c *Console) DrawLine(x1, y1, x2, y2, colour1, colour2 int) {
	c.writeTag(schema.Tag{Kind: schema.TagLine, X1: x1, Y1: y1, X2: x2, Y2: y2, Colour1: colour1, Colour2: colour2})
}

// Fill flood-fills colour2 with colour1 starting at (x, y).
func (c *Console) Fill(x, y, colour1, colour2 int) {
	c.writeTag(schema.Tag{Kind: schema.TagFill, X1: x, Y1: y, Colour1: colour1, Colour2: colour2})
}
