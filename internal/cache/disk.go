package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const diskExt = ".pcm.zst"

// DiskCache stores zstd-compressed entries as files, one per key. Access
// times come from file modification times, so the index survives restarts
// without a separate metadata file.
type DiskCache struct {
	dir      string
	capacity int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	index map[string]diskEntry
	size  int64
	stats Stats
}

type diskEntry struct {
	size       int64 // compressed size on disk
	lastAccess time.Time
}

// NewDiskCache opens or creates a cache directory holding at most capacity
// compressed bytes.
func NewDiskCache(dir string, capacity int64, level zstd.EncoderLevel) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		encoder:  enc,
		decoder:  dec,
		index:    make(map[string]diskEntry),
	}
	if err := dc.scan(); err != nil {
		return nil, err
	}
	return dc, nil
}

func (dc *DiskCache) scan() error {
	entries, err := os.ReadDir(dc.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, diskExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(name, diskExt)
		dc.index[key] = diskEntry{size: info.Size(), lastAccess: info.ModTime()}
		dc.size += info.Size()
	}
	return nil
}

func (dc *DiskCache) path(key string) string {
	return filepath.Join(dc.dir, key+diskExt)
}

// Get reads and decompresses the entry for key.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	compressed, err := os.ReadFile(dc.path(key))
	if err != nil {
		dc.drop(key, entry)
		dc.stats.Misses++
		return nil, false
	}
	data, err := dc.decoder.DecodeAll(compressed, nil)
	if err != nil {
		_ = os.Remove(dc.path(key))
		dc.drop(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	now := time.Now()
	_ = os.Chtimes(dc.path(key), now, now)
	entry.lastAccess = now
	dc.index[key] = entry
	dc.stats.Hits++
	return data, true
}

// Put compresses and writes value, evicting the least recently used files
// to stay within capacity.
func (dc *DiskCache) Put(key string, value []byte) error {
	compressed := dc.encoder.EncodeAll(value, nil)
	n := int64(len(compressed))

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if n > dc.capacity {
		return ErrItemTooLarge
	}

	tmp := dc.path(key) + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp, dc.path(key)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}

	if old, ok := dc.index[key]; ok {
		dc.size -= old.size
	}
	dc.index[key] = diskEntry{size: n, lastAccess: time.Now()}
	dc.size += n

	dc.evict()
	return nil
}

// Clear deletes every entry.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key := range dc.index {
		if err := os.Remove(dc.path(key)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	dc.index = make(map[string]diskEntry)
	dc.size = 0
	return nil
}

// Stats returns cache counters; sizes are compressed bytes.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	s := dc.stats
	s.Capacity = dc.capacity
	s.Size = dc.size
	s.Items = int64(len(dc.index))
	return s
}

// Close releases the compressor.
func (dc *DiskCache) Close() error {
	dc.decoder.Close()
	return dc.encoder.Close()
}

func (dc *DiskCache) evict() {
	if dc.size <= dc.capacity {
		return
	}

	keys := make([]string, 0, len(dc.index))
	for k := range dc.index {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return dc.index[keys[i]].lastAccess.Before(dc.index[keys[j]].lastAccess)
	})

	for _, k := range keys {
		if dc.size <= dc.capacity {
			return
		}
		_ = os.Remove(dc.path(k))
		dc.drop(k, dc.index[k])
		dc.stats.Evictions++
	}
}

func (dc *DiskCache) drop(key string, e diskEntry) {
	delete(dc.index, key)
	dc.size -= e.size
}
