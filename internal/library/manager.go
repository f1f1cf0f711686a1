// Package library discovers playable game files under a fixed root and
// resolves names to games.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pkt.systems/loquax/internal/interp"
	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// Manager handles game discovery under a fixed root.
type Manager struct {
	root string
	log  pslog.Logger
}

// NewManager ensures the root exists and returns a Manager.
func NewManager(root string) (*Manager, error) {
	return NewManagerWithLogger(root, nil)
}

// NewManagerWithLogger ensures the root exists and returns a Manager with
// logging.
func NewManagerWithLogger(root string, logger pslog.Logger) (*Manager, error) {
	if strings.TrimSpace(root) == "" {
		return nil, schema.ErrInvalidLibrary
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("library_root", root)
	}
	return &Manager{root: root, log: logger}, nil
}

// Root returns the library root.
func (m *Manager) Root() string {
	return m.root
}

// List walks the root and returns every file a known interpreter claims,
// sorted by name. Hidden directories are skipped.
func (m *Manager) List() ([]schema.GameRef, error) {
	if m.log != nil {
		m.log.Trace("game library scan start")
	}
	var games []schema.GameRef
	seen := make(map[string]string)
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != m.root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		format := interp.DetectFormat(d.Name())
		if format == schema.FormatUnknown {
			return nil
		}
		name := gameName(path)
		if kept, dup := seen[name]; dup {
			if m.log != nil {
				m.log.Warn("duplicate game name", "name", name, "kept", kept, "ignored", path)
			}
			return nil
		}
		seen[name] = path
		games = append(games, schema.GameRef{Name: name, Path: path, Format: format})
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if m.log != nil {
			m.log.Warn("game library scan failed", "err", err)
		}
		return nil, err
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Name < games[j].Name })
	if m.log != nil {
		m.log.Debug("game library scan ok", "count", len(games))
	}
	return games, nil
}

// Games lists the library, swallowing scan errors. It satisfies the core
// game source contract.
func (m *Manager) Games() []schema.GameRef {
	games, err := m.List()
	if err != nil {
		return nil
	}
	return games
}

// Find resolves a game by name or filename. An argument containing a
// path separator is treated as a direct file path, which lets callers
// play files outside the library.
func (m *Manager) Find(name string) (schema.GameRef, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return schema.GameRef{}, schema.ErrInvalidGame
	}
	if strings.ContainsRune(trimmed, os.PathSeparator) {
		return m.fromPath(trimmed)
	}
	games, err := m.List()
	if err != nil {
		return schema.GameRef{}, err
	}
	for _, game := range games {
		if game.Name == trimmed {
			return game, nil
		}
	}
	for _, game := range games {
		if filepath.Base(game.Path) == trimmed {
			return game, nil
		}
	}
	if m.log != nil {
		m.log.Warn("game lookup failed", "name", trimmed)
	}
	return schema.GameRef{}, fmt.Errorf("%w: %q", schema.ErrGameNotFound, trimmed)
}

func (m *Manager) fromPath(path string) (schema.GameRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return schema.GameRef{}, fmt.Errorf("%w: %s", schema.ErrGameNotFound, path)
	}
	if info.IsDir() {
		return schema.GameRef{}, fmt.Errorf("%w: %s is a directory", schema.ErrInvalidGame, path)
	}
	format := interp.DetectFormat(path)
	if format == schema.FormatUnknown {
		return schema.GameRef{}, fmt.Errorf("%w: %s", schema.ErrUnsupportedFormat, path)
	}
	return schema.GameRef{Name: gameName(path), Path: path, Format: format}, nil
}

func gameName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
