package cache

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
	"github.com/mitchellh/go-homedir"
)

var logger = log.WithPrefix("cache")

// Config sizes the two tiers. An empty Dir disables the disk tier.
type Config struct {
	MemoryBytes int64
	DiskBytes   int64
	Dir         string
}

// Manager reads through memory then disk and writes to both.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
}

// NewManager builds the tiers described by cfg. Dir may start with ~.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{memory: NewMemoryCache(cfg.MemoryBytes)}
	if cfg.Dir == "" || cfg.DiskBytes <= 0 {
		return m, nil
	}

	dir, err := homedir.Expand(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("invalid cache dir %q: %w", cfg.Dir, err)
	}
	m.disk, err = NewDiskCache(dir, cfg.DiskBytes, zstd.SpeedDefault)
	if err != nil {
		return nil, err
	}

	s := m.disk.Stats()
	logger.Debug("disk cache opened", "dir", dir, "items", s.Items,
		"size", humanize.IBytes(uint64(s.Size)), "capacity", humanize.IBytes(uint64(s.Capacity)))
	return m, nil
}

// Get looks up key, promoting disk hits into memory.
func (m *Manager) Get(key string) ([]byte, Level, bool) {
	if v, ok := m.memory.Get(key); ok {
		return v, LevelMemory, true
	}
	if m.disk == nil {
		return nil, LevelMemory, false
	}
	v, ok := m.disk.Get(key)
	if !ok {
		return nil, LevelDisk, false
	}
	if err := m.memory.Put(key, v); err != nil {
		logger.Debug("not promoted to memory", "size", humanize.IBytes(uint64(len(v))), "err", err)
	}
	return v, LevelDisk, true
}

// Put stores value in every tier that can hold it.
func (m *Manager) Put(key string, value []byte) error {
	memErr := m.memory.Put(key, value)
	if m.disk == nil {
		return memErr
	}
	return m.disk.Put(key, value)
}

// Clear empties every tier.
func (m *Manager) Clear() error {
	if err := m.memory.Clear(); err != nil {
		return err
	}
	if m.disk != nil {
		return m.disk.Clear()
	}
	return nil
}

// Stats returns the counters of both tiers.
func (m *Manager) Stats() (memory, disk Stats) {
	memory = m.memory.Stats()
	if m.disk != nil {
		disk = m.disk.Stats()
	}
	return memory, disk
}

// Summary renders both tiers for logs and the status view.
func (m *Manager) Summary() string {
	mem, disk := m.Stats()
	return fmt.Sprintf("memory %s (%d items, %.0f%% hits), disk %s (%d items)",
		humanize.IBytes(uint64(mem.Size)), mem.Items, mem.HitRate()*100,
		humanize.IBytes(uint64(disk.Size)), disk.Items)
}

// Close releases the disk tier.
func (m *Manager) Close() error {
	if m.disk != nil {
		return m.disk.Close()
	}
	return nil
}
