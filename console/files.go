package console

import (
	"io"
	"os"
	"path/filepath"
)

// File prompt strings. Emitted verbatim, unbuffered, after a flush; the
// host answers with one line naming a path.
const (
	PromptSave     = "Save file: "
	PromptLoad     = "Load file: "
	PromptScript   = "Script file: "
	PromptNextGame = "Load next game: "
)

// SaveFile prompts for a path and writes data to it. Failure is a
// boolean; the interpreter treats false as a no-op and resumes.
func (c *Console) SaveFile(data []byte) bool {
	name, ok := c.promptPath(PromptSave)
	if !ok || name == "" {
		return false
	}
	f, err := os.Create(name)
	if err != nil {
		c.warnFile("save", name, err)
		return false
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		c.warnFile("save", name, werr)
		return false
	}
	return true
}

// LoadFile prompts for a path and reads at most max bytes from it. A
// missing or unreadable file fails with nothing read.
func (c *Console) LoadFile(max int) ([]byte, bool) {
	name, ok := c.promptPath(PromptLoad)
	if !ok || name == "" {
		return nil, false
	}
	f, err := os.Open(name)
	if err != nil {
		c.warnFile("load", name, err)
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, int64(max)))
	if err != nil {
		c.warnFile("load", name, err)
		return nil, false
	}
	return data, true
}

// OpenScriptFile prompts for a command script and opens it for reading.
func (c *Console) OpenScriptFile() (*os.File, bool) {
	name, ok := c.promptPath(PromptScript)
	if !ok || name == "" {
		return nil, false
	}
	f, err := os.Open(name)
	if err != nil {
		c.warnFile("script", name, err)
		return nil, false
	}
	return f, true
}

// NextGameFile prompts for the next game file to load, truncating the
// answer to max bytes.
func (c *Console) NextGameFile(max int) (string, bool) {
	return c.promptPathMax(PromptNextGame, max)
}

func (c *Console) promptPath(prompt string) (string, bool) {
	return c.promptPathMax(prompt, 0)
}

func (c *Console) promptPathMax(prompt string, max int) (string, bool) {
	c.Flush()
	c.writeDirect(prompt)
	name, err := c.readHostLine(max)
	if err != nil {
		c.noteRead(err)
		return "", false
	}
	return name, true
}

func (c *Console) warnFile(op, name string, err error) {
	if c.log != nil {
		c.log.Warn("file operation failed", "op", op, "path", name, "err", err)
	}
}

// SetFileNumber returns name with the last decimal digit of its base name
// replaced by n mod 10. Multi-part games number their data files this
// way. ok is false when the base name holds no digit; the directory part
// is never touched.
func SetFileNumber(name string, n int) (string, bool) {
	dir, base := filepath.Split(name)
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] >= '0' && base[i] <= '9' {
			b := []byte(base)
			b[i] = byte('0' + n%10)
			return dir + string(b), true
		}
	}
	return name, false
}

// FileExists is a stat probe for interpreter "is this file there" checks.
func FileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}
