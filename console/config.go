package console

import (
	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// Tunable defaults. The numeric values match the interpreter ports this
// bridge was built against; they are configuration, not contract.
const (
	// DefaultBufferSize is the output buffer capacity in bytes.
	DefaultBufferSize = 10240
	// DefaultCharThreshold is how many key polls return "no key" before a
	// real blocking read happens. Pacing is call-count based, not
	// wall-clock; engines that poll-wait see mostly "no key" while menu
	// reads still complete.
	DefaultCharThreshold = 1024
	// DefaultMetaPrefix marks host meta-commands inside the input stream.
	DefaultMetaPrefix = "##img#"
	// DefaultLineMax bounds a single host input line.
	DefaultLineMax = 256
	// MagneticBufferSize is the Magnetic adapter's output buffer capacity.
	MagneticBufferSize = 256
	// MagneticFlushMark is the fill level that forces a Magnetic flush.
	MagneticFlushMark = 200
)

// BitmapSource decodes game bitmaps for the graphics codec. Implementations
// are interpreter-specific; a decode failure downgrades the dump to a no-op.
type BitmapSource interface {
	DecodeBitmap(id schema.BitmapID) (*schema.Bitmap, error)
}

// Config carries the tunables and collaborators for one Console.
// Zero values select the defaults above.
type Config struct {
	BufferSize    int
	CharThreshold int
	MetaPrefix    string
	LineMax       int

	// Bitmaps backs DeclareAndDump; nil disables bitmap dumps.
	Bitmaps BitmapSource
	// PictureSize reports the current picture dimensions for the
	// graphics-mode tag; nil or a zero size suppresses the size tag.
	PictureSize func() (width, height int)
	// Transcript receives interpreter prose, Script receives host
	// commands. Either may be nil.
	Transcript *Sink
	Script     *Sink

	Logger pslog.Logger
}

func (c Config) bufferSize() int {
	if c.BufferSize > 0 {
		return c.BufferSize
	}
	return DefaultBufferSize
}

func (c Config) charThreshold() int {
	if c.CharThreshold > 0 {
		return c.CharThreshold
	}
	return DefaultCharThreshold
}

func (c Config) metaPrefix() string {
	if c.MetaPrefix != "" {
		return c.MetaPrefix
	}
	return DefaultMetaPrefix
}

func (c Config) lineMax() int {
	if c.LineMax > 0 {
		return c.LineMax
	}
	return DefaultLineMax
}
