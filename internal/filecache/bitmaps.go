package filecache

import (
	"encoding/json"
	"fmt"

	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// BitmapStore keeps decoded game bitmaps in a Cache so repeated plays
// of the same game skip the pixel dump round trip.
type BitmapStore struct {
	cache *Cache
	log   pslog.Logger
}

// NewBitmapStore wraps an open cache.
func NewBitmapStore(cache *Cache, logger pslog.Logger) *BitmapStore {
	return &BitmapStore{cache: cache, log: logger}
}

func bitmapKey(id schema.BitmapID) string {
	return fmt.Sprintf("bitmap:%d", id)
}

func bitmapMeta(game string) map[string]string {
	return map[string]string{"game": game}
}

// Get returns the cached bitmap for a game, if present.
func (s *BitmapStore) Get(game string, id schema.BitmapID) (*schema.Bitmap, bool) {
	data, ok := s.cache.Get(bitmapKey(id), bitmapMeta(game))
	if !ok {
		return nil, false
	}
	var bitmap schema.Bitmap
	if err := json.Unmarshal(data, &bitmap); err != nil {
		if s.log != nil {
			s.log.Warn("cached bitmap unreadable", "game", game, "bitmap", int(id), "err", err)
		}
		return nil, false
	}
	return &bitmap, true
}

// Put stores a bitmap for a game.
func (s *BitmapStore) Put(game string, id schema.BitmapID, bitmap *schema.Bitmap) error {
	data, err := json.Marshal(bitmap)
	if err != nil {
		return err
	}
	return s.cache.Add(bitmapKey(id), data, bitmapMeta(game))
}
