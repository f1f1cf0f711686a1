package schema

// SessionID identifies one bridged interpreter session.
type SessionID string

// BitmapID identifies a bitmap inside one game; small non-negative integer.
type BitmapID int

// RGB is a 24-bit packed colour value (0xRRGGBB).
type RGB uint32

// InputMode reports which read primitive the interpreter is using.
type InputMode string

const (
	// ModeUnset means no read has happened yet.
	ModeUnset InputMode = ""
	// ModeLine means the interpreter reads whole lines.
	ModeLine InputMode = "line"
	// ModeChar means the interpreter reads single keys.
	ModeChar InputMode = "char"
)

// GameFormat identifies the interpreter family a game file needs.
type GameFormat string

const (
	// FormatUnknown marks files no interpreter claims.
	FormatUnknown GameFormat = ""
	// FormatZcode marks Z-machine story files (dfrotz).
	FormatZcode GameFormat = "zcode"
	// FormatLevel9 marks Level 9 game files.
	FormatLevel9 GameFormat = "level9"
	// FormatMagnetic marks Magnetic Scrolls game files.
	FormatMagnetic GameFormat = "magnetic"
	// FormatMock marks the built-in scripted demo interpreter.
	FormatMock GameFormat = "mock"
)

// GameRef identifies a playable game in the library.
type GameRef struct {
	Name   string     `json:"name"`
	Path   string     `json:"path"`
	Format GameFormat `json:"format"`
}

// Bitmap is a decoded bitmap payload: geometry, palette, and row-major
// palette indices.
type Bitmap struct {
	ID      BitmapID `json:"id"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Palette []RGB    `json:"palette"`
	Pixels  []byte   `json:"pixels"`
}
