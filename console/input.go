package console

import (
	"strconv"
	"strings"

	"pkt.systems/loquax/schema"
)

// ReadLine flushes pending prose and blocks for one line of host input.
// The trailing newline is stripped and a line longer than max is truncated
// with the excess discarded. It returns ok=false for "no game move": the
// interpreter must re-prompt. That covers intercepted meta-commands as
// well as a failed host stream (check Err to tell the two apart).
//
// Switching from single-key reads emits the linemode tag once, before the
// flush, so the host sees the mode change ahead of the buffered prose.
func (c *Console) ReadLine(max int) (string, bool) {
	if c.mode == schema.ModeChar {
		c.writeTag(schema.Tag{Kind: schema.TagLineMode})
	}
	c.mode = schema.ModeLine
	c.Flush()
	line, err := c.readHostLine(max)
	if err != nil {
		c.noteRead(err)
		return "", false
	}
	if strings.HasPrefix(line, c.cfg.metaPrefix()) {
		// Host-reserved namespace: never forwarded as a game command.
		if id, ok := c.metaBitmap(line); ok && !c.dumped[id] {
			c.DeclareAndDump(id)
			c.dumped[id] = true
		}
		return "", false
	}
	if c.script != nil {
		c.script.WriteString(line + "\n")
	}
	return line, true
}

// ReadChar flushes pending prose and consults the key-poll counter.
// timeoutMillis == 0 is an availability poll: it returns 0 without
// touching the counter. Any other value counts the call; the first
// threshold-1 calls return 0 and the call that reaches the threshold
// resets the counter and blocks for one real byte.
//
// Switching from line reads emits the keymode tag once, before the flush.
func (c *Console) ReadChar(timeoutMillis int) byte {
	if c.mode != schema.ModeChar {
		c.writeTag(schema.Tag{Kind: schema.TagKeyMode})
	}
	c.mode = schema.ModeChar
	c.Flush()
	if timeoutMillis == 0 {
		return 0
	}
	c.charCalls++
	if c.charCalls < c.cfg.charThreshold() {
		return 0
	}
	c.charCalls = 0
	ch, err := c.in.ReadByte()
	if err != nil {
		c.noteRead(err)
		return 0
	}
	if c.script != nil {
		c.script.WriteChar(ch)
	}
	return ch
}

// readHostLine reads up to and including one newline, returning the line
// without it. EOF directly after content still yields that content; the
// next call reports the EOF.
func (c *Console) readHostLine(max int) (string, error) {
	if max <= 0 {
		max = c.cfg.lineMax()
	}
	line := make([]byte, 0, 64)
	for {
		ch, err := c.in.ReadByte()
		if err != nil {
			if len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}
		if ch == '\n' {
			return string(line), nil
		}
		if len(line) < max {
			line = append(line, ch)
		}
	}
}

// metaBitmap parses the bitmap id of a meta-command line. A reserved
// prefix with garbage after it parses as no id; the caller swallows the
// line either way.
func (c *Console) metaBitmap(line string) (schema.BitmapID, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(line[len(c.cfg.metaPrefix()):]))
	if err != nil || n < 0 {
		return 0, false
	}
	return schema.BitmapID(n), true
}
