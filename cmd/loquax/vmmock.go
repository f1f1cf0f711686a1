package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/loquax/console"
	"pkt.systems/loquax/schema"
)

func newVMMockCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "vm-mock <game>",
		Short:         "Scripted demo interpreter for .mock games",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVMMock(args[0], cmd.OutOrStdout(), cmd.InOrStdin())
		},
	}
}

const (
	mockPictureWidth  = 160
	mockPictureHeight = 96
)

// runVMMock plays the built-in two-room demo over the stream bridge. It
// exercises every bridge feature a real interpreter port uses: buffered
// prose, graphics tags, bitmap dumps, meta-commands, and both input
// modes. The host side cannot tell it from a real engine.
func runVMMock(path string, out io.Writer, in io.Reader) error {
	c := console.New(out, in, console.Config{
		Bitmaps:     mockBitmaps{},
		PictureSize: func() (int, int) { return mockPictureWidth, mockPictureHeight },
		// Block on the first counted key poll; the demo has no engine
		// loop to pace.
		CharThreshold: 1,
	})
	game := &mockGame{console: c, title: mockTitle(path)}
	game.run()
	if err := c.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// mockTitle takes the first non-blank line of the game file, falling back
// to the file name.
func mockTitle(path string) string {
	base := filepath.Base(path)
	fallback := strings.TrimSuffix(base, filepath.Ext(base))
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	for _, line := range strings.Split(string(data), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

type mockRoom struct {
	name        string
	description string
	bitmap      schema.BitmapID
	north       int
	south       int
}

var mockRooms = []mockRoom{
	{
		name:        "Signal Hut",
		description: "Dust drifts through the lantern light of a cramped radio hut. A copper ladder climbs north toward the ridge.",
		bitmap:      1,
		north:       1,
		south:       -1,
	},
	{
		name:        "Antenna Ridge",
		description: "Wind combs the grass flat around a lattice mast. Far below, the hut's stovepipe smokes. The ladder leads back south.",
		bitmap:      2,
		north:       -1,
		south:       0,
	},
}

type mockGame struct {
	console *console.Console
	title   string
	room    int
}

func (g *mockGame) run() {
	c := g.console
	c.WriteString(g.title + "\n")
	c.WriteString("A small demo world. Type 'help' for the verbs it knows.\n\n")
	c.GraphicsMode(1)
	g.enterRoom()
	for {
		c.WriteString("\n> ")
		line, ok := c.ReadLine(0)
		if !ok {
			if c.Err() != nil {
				return
			}
			// A swallowed meta-command; prompt again.
			continue
		}
		if !g.handle(strings.ToLower(strings.TrimSpace(line))) {
			return
		}
	}
}

func (g *mockGame) enterRoom() {
	room := mockRooms[g.room]
	c := g.console
	c.WriteString(room.name + "\n")
	c.WriteString(room.description + "\n")
	g.drawScene(room)
}

func (g *mockGame) drawScene(room mockRoom) {
	c := g.console
	c.ClearGraphics()
	c.SetColour(1, 2)
	c.DrawLine(0, 64, mockPictureWidth-1, 64, 1, 0)
	c.Fill(mockPictureWidth/2, 80, 2, 0)
	c.ShowBitmap(room.bitmap, 12, 8)
}

func (g *mockGame) handle(line string) bool {
	c := g.console
	switch line {
	case "":
		c.WriteString("Silence. The carrier wave hisses softly.\n")
	case "look", "l":
		g.enterRoom()
	case "north", "n":
		g.move(mockRooms[g.room].north, "The ladder rungs ring under your boots.")
	case "south", "s":
		g.move(mockRooms[g.room].south, "You climb back down into the warm hut.")
	case "listen":
		g.listen()
	case "help":
		c.WriteString("The demo understands: look, north, south, listen, help, xyzzy, quit.\n")
	case "xyzzy":
		c.WriteString("A hollow voice says: not here.\n")
	case "quit", "q":
		c.WriteString("The carrier drops and the world goes quiet.\n")
		c.Flush()
		return false
	default:
		c.WriteString("That verb means nothing out here. Try 'help'.\n")
	}
	return c.Err() == nil
}

func (g *mockGame) move(next int, flavor string) {
	if next < 0 {
		g.console.WriteString("You can't go that way.\n")
		return
	}
	g.room = next
	g.console.WriteString(flavor + "\n\n")
	g.enterRoom()
}

// listen switches the bridge to single-key input for one keypress.
func (g *mockGame) listen() {
	c := g.console
	c.WriteString("You press the headphone to your ear. Press any key when the beat locks in.\n")
	for {
		key := c.ReadChar(100)
		if c.Err() != nil {
			return
		}
		if key == 0 {
			continue
		}
		if key == '\n' || key == '\r' {
			c.WriteString("\nYou tap along in time with the beat.\n")
			return
		}
		c.WriteString(fmt.Sprintf("\nMorse fragments resolve themselves around %q.\n", key))
		return
	}
}

// mockBitmaps generates the demo's two pictures. Everything is derived
// from the id, so repeated dumps are identical and cacheable.
type mockBitmaps struct{}

func (mockBitmaps) DecodeBitmap(id schema.BitmapID) (*schema.Bitmap, error) {
	if id < 1 || id > 2 {
		return nil, fmt.Errorf("no bitmap %d in the demo", id)
	}
	const width, height = 24, 16
	palette := []schema.RGB{0x000000, 0x30E830, 0xFFFF00, 0x00FFFF}
	pixels := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			switch {
			case y == height-1:
				pixels[idx] = 1
			case id == 1 && (x+y)%5 == 0:
				pixels[idx] = 2
			case id == 2 && x == width/2:
				pixels[idx] = 3
			case id == 2 && y%4 == 0 && x > width/2-4 && x < width/2+4:
				pixels[idx] = 3
			}
		}
	}
	return &schema.Bitmap{ID: id, Width: width, Height: height, Palette: palette, Pixels: pixels}, nil
}
