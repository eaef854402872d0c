package inference

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheStats reports score cache effectiveness.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// scoreCache keeps softmax vectors keyed by model and cleaned text, in memory
// and optionally on disk.
type scoreCache struct {
	modelID string
	mem     *lru.Cache[string, []float32]
	dir     string
	hits    atomic.Uint64
	misses  atomic.Uint64
}

func newScoreCache(modelID string, size int, dir string) (*scoreCache, error) {
	c := &scoreCache{modelID: modelID, dir: dir}
	if size > 0 {
		mem, err := lru.New[string, []float32](size)
		if err != nil {
			return nil, fmt.Errorf("init score cache: %w", err)
		}
		c.mem = mem
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return c, nil
}

func (c *scoreCache) key(text string) string {
	h := sha1.New()
	_, _ = io.WriteString(h, c.modelID)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *scoreCache) get(text string) ([]float32, bool) {
	if c.mem == nil && c.dir == "" {
		return nil, false
	}
	key := c.key(text)
	if c.mem != nil {
		if vec, ok := c.mem.Get(key); ok {
			c.hits.Add(1)
			return slices.Clone(vec), true
		}
	}
	if vec, err := c.loadFromDisk(key); err == nil {
		if c.mem != nil {
			c.mem.Add(key, vec)
		}
		c.hits.Add(1)
		return slices.Clone(vec), true
	}
	c.misses.Add(1)
	return nil, false
}

func (c *scoreCache) put(text string, vec []float32) {
	if c.mem == nil && c.dir == "" {
		return
	}
	key := c.key(text)
	if c.mem != nil {
		c.mem.Add(key, slices.Clone(vec))
	}
	_ = c.saveToDisk(key, vec)
}

func (c *scoreCache) stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *scoreCache) loadFromDisk(key string) ([]float32, error) {
	if c.dir == "" {
		return nil, os.ErrNotExist
	}
	path := filepath.Join(c.dir, key+".bin")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("cache file too small: %s", path)
	}
	length := int(binary.LittleEndian.Uint32(data[:4]))
	data = data[4:]
	if len(data) != length*4 {
		return nil, fmt.Errorf("cache length mismatch: %s", path)
	}
	vec := make([]float32, length)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
	}
	return vec, nil
}

func (c *scoreCache) saveToDisk(key string, vec []float32) error {
	if c.dir == "" {
		return nil
	}
	path := filepath.Join(c.dir, key+".bin")
	buf := make([]byte, 4+len(vec)*4)
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	off := 4
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	// Each writer gets its own temp file; concurrent saves of one key race only on the rename.
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
