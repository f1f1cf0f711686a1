package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// TagKind is the first word inside a bracketed stream tag.
type TagKind string

const (
	// TagImage declares bitmap geometry before palette and pixel tags.
	TagImage TagKind = "img"
	// TagPalette carries the palette for a declared bitmap.
	TagPalette TagKind = "pal"
	// TagPixels carries row-major palette indices for a declared bitmap.
	TagPixels TagKind = "pixels"
	// TagGraphicsMode announces a graphics mode change.
	TagGraphicsMode TagKind = "gfx"
	// TagImageSize reports the current picture size after a mode change.
	TagImageSize TagKind = "imgsize"
	// TagClear clears the graphics surface.
	TagClear TagKind = "clear"
	// TagSetColor remaps one palette slot.
	TagSetColor TagKind = "setcolor"
	// TagLine draws a line.
	TagLine TagKind = "line"
	// TagFill flood-fills a region.
	TagFill TagKind = "fill"
	// TagShowBitmap displays a bitmap at a position.
	TagShowBitmap TagKind = "bitmap"
	// TagLineMode announces the switch to whole-line input.
	TagLineMode TagKind = "linemode"
	// TagKeyMode announces the switch to single-key input.
	TagKeyMode TagKind = "keymode"
)

// Tag is one out-of-band stream annotation. Which fields are meaningful
// depends on Kind; unused fields stay zero.
type Tag struct {
	Kind        TagKind  `json:"kind"`
	Bitmap      BitmapID `json:"bitmap,omitempty"`
	Width       int      `json:"width,omitempty"`
	Height      int      `json:"height,omitempty"`
	PaletteSize int      `json:"palette_size,omitempty"`
	Palette     []RGB    `json:"palette,omitempty"`
	Pixels      []byte   `json:"pixels,omitempty"`
	Mode        int      `json:"mode,omitempty"`
	X1          int      `json:"x1,omitempty"`
	Y1          int      `json:"y1,omitempty"`
	X2          int      `json:"x2,omitempty"`
	Y2          int      `json:"y2,omitempty"`
	Colour1     int      `json:"colour1,omitempty"`
	Colour2     int      `json:"colour2,omitempty"`
	Colour      int      `json:"colour,omitempty"`
	Index       int      `json:"index,omitempty"`
}

// String renders the tag in stream form, without a trailing newline.
// The formats are fixed; ParseTag inverts them exactly.
func (t Tag) String() string {
	switch t.Kind {
	case TagImage:
		return fmt.Sprintf("#[img %d %d %d %d]", t.Bitmap, t.Width, t.Height, t.PaletteSize)
	case TagPalette:
		var b strings.Builder
		fmt.Fprintf(&b, "#[pal %d", t.Bitmap)
		for _, c := range t.Palette {
			fmt.Fprintf(&b, " 0x%06X", uint32(c)&0xFFFFFF)
		}
		b.WriteString("]")
		return b.String()
	case TagPixels:
		var b strings.Builder
		fmt.Fprintf(&b, "#[pixels %d", t.Bitmap)
		for _, p := range t.Pixels {
			fmt.Fprintf(&b, " 0x%02X", p)
		}
		b.WriteString("]")
		return b.String()
	case TagGraphicsMode:
		return fmt.Sprintf("#[gfx %d]", t.Mode)
	case TagImageSize:
		return fmt.Sprintf("#[imgsize %d %d]", t.Width, t.Height)
	case TagClear:
		return "#[clear]"
	case TagSetColor:
		return fmt.Sprintf("#[setcolor %d %d]", t.Colour, t.Index)
	case TagLine:
		return fmt.Sprintf("#[line %d %d %d %d %d %d]", t.X1, t.Y1, t.X2, t.Y2, t.Colour1, t.Colour2)
	case TagFill:
		return fmt.Sprintf("#[fill %d %d %d %d]", t.X1, t.Y1, t.Colour1, t.Colour2)
	case TagShowBitmap:
		return fmt.Sprintf("#[bitmap %d %d %d]", t.Bitmap, t.X1, t.Y1)
	case TagLineMode:
		return "#[linemode]"
	case TagKeyMode:
		return "#[keymode]"
	}
	return fmt.Sprintf("#[%s]", t.Kind)
}

// ParseTag parses one tag in stream form. It accepts either the full
// bracketed form ("#[line 0 0 10 10 1 0]") or the bare body
// ("line 0 0 10 10 1 0").
func ParseTag(s string) (Tag, error) {
	body := strings.TrimSpace(s)
	if strings.HasPrefix(body, "#[") {
		body = strings.TrimPrefix(body, "#[")
		body = strings.TrimSuffix(body, "]")
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return Tag{}, fmt.Errorf("%w: empty", ErrInvalidTag)
	}
	kind := TagKind(fields[0])
	args := fields[1:]
	switch kind {
	case TagImage:
		v, err := tagInts(kind, args, 4)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: kind, Bitmap: BitmapID(v[0]), Width: v[1], Height: v[2], PaletteSize: v[3]}, nil
	case TagPalette:
		if len(args) < 1 {
			return Tag{}, fmt.Errorf("%w: pal needs a bitmap id", ErrInvalidTag)
		}
		id, err := tagInt(kind, args[0])
		if err != nil {
			return Tag{}, err
		}
		pal := make([]RGB, 0, len(args)-1)
		for _, a := range args[1:] {
			v, err := tagInt(kind, a)
			if err != nil {
				return Tag{}, err
			}
			pal = append(pal, RGB(uint32(v)&0xFFFFFF))
		}
		return Tag{Kind: kind, Bitmap: BitmapID(id), Palette: pal}, nil
	case TagPixels:
		if len(args) < 1 {
			return Tag{}, fmt.Errorf("%w: pixels needs a bitmap id", ErrInvalidTag)
		}
		id, err := tagInt(kind, args[0])
		if err != nil {
			return Tag{}, err
		}
		px := make([]byte, 0, len(args)-1)
		for _, a := range args[1:] {
			v, err := tagInt(kind, a)
			if err != nil {
				return Tag{}, err
			}
			px = append(px, byte(v))
		}
		return Tag{Kind: kind, Bitmap: BitmapID(id), Pixels: px}, nil
	case TagGraphicsMode:
		v, err := tagInts(kind, args, 1)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: kind, Mode: v[0]}, nil
	case TagImageSize:
		v, err := tagInts(kind, args, 2)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: kind, Width: v[0], Height: v[1]}, nil
	case TagClear:
		return Tag{Kind: kind}, nil
	case TagSetColor:
		v, err := tagInts(kind, args, 2)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: kind, Colour: v[0], Index: v[1]}, nil
	case TagLine:
		v, err := tagInts(kind, args, 6)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: kind, X1: v[0], Y1: v[1], X2: v[2], Y2: v[3], Colour1: v[4], Colour2: v[5]}, nil
	case TagFill:
		v, err := tagInts(kind, args, 4)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: kind, X1: v[0], Y1: v[1], Colour1: v[2], Colour2: v[3]}, nil
	case TagShowBitmap:
		v, err := tagInts(kind, args, 3)
		if err != nil {
			return Tag{}, err
		}
		return Tag{Kind: kind, Bitmap: BitmapID(v[0]), X1: v[1], Y1: v[2]}, nil
	case TagLineMode, TagKeyMode:
		return Tag{Kind: kind}, nil
	}
	return Tag{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTag, fields[0])
}

// InputModeForTag maps mode-change tags to the input mode they announce.
func InputModeForTag(kind TagKind) (InputMode, bool) {
	switch kind {
	case TagLineMode:
		return ModeLine, true
	case TagKeyMode:
		return ModeChar, true
	}
	return ModeUnset, false
}

func tagInt(kind TagKind, s string) (int, error) {
	// Base 0 so 0x-prefixed palette and pixel values parse.
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s field %q", ErrInvalidTag, kind, s)
	}
	return int(v), nil
}

func tagInts(kind TagKind, args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%w: %s wants %d fields, got %d", ErrInvalidTag, kind, n, len(args))
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := tagInt(kind, a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
