package egdb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
)

// Backend persists and retrieves one EGDB layer's raw int8 values by stone
// count. Implementations may store layers as flat files, memory-mapped
// files, or compressed blocks; Load is expected to be safe for concurrent
// callers probing distinct layers.
type Backend interface {
	Load(stones int) ([]int8, error)
	Save(stones int, values []int8) error
}

// BlockProber is an optional capability a Backend may implement to answer
// a single-entry probe by decompressing only the block that contains it,
// rather than materializing the whole layer.
type BlockProber interface {
	ProbeBlock(stones int, rank int64) (int8, error)
}

func layerPath(dir string, stones int) string {
	return filepath.Join(dir, fmt.Sprintf("layer-%03d.egdb", stones))
}

// DirectBackend stores each layer as a raw byte file, one int8 per byte.
type DirectBackend struct {
	Dir string
}

func (d *DirectBackend) Save(stones int, values []int8) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	buf := make([]byte, len(values))
	for i, v := range values {
		buf[i] = byte(v)
	}
	return os.WriteFile(layerPath(d.Dir, stones), buf, 0o644)
}

func (d *DirectBackend) Load(stones int) ([]int8, error) {
	buf, err := os.ReadFile(layerPath(d.Dir, stones))
	if err != nil {
		return nil, err
	}
	values := make([]int8, len(buf))
	for i, b := range buf {
		values[i] = int8(b)
	}
	return values, nil
}

// MmapBackend memory-maps each layer file read-only after it has been
// written by DirectBackend.Save (or an equivalent writer) and keeps the
// mapping open until Close. Load copies the mapped bytes into a new []int8
// on every call, so the returned layer still lives on the Go heap.
type MmapBackend struct {
	Dir string

	handles map[int]*os.File
	maps    map[int]mmap.MMap
}

// NewMmapBackend returns a backend ready to map layer files under dir.
func NewMmapBackend(dir string) *MmapBackend {
	return &MmapBackend{
		Dir:     dir,
		handles: make(map[int]*os.File),
		maps:    make(map[int]mmap.MMap),
	}
}

func (m *MmapBackend) Save(stones int, values []int8) error {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return err
	}
	buf := make([]byte, len(values))
	for i, v := range values {
		buf[i] = byte(v)
	}
	return os.WriteFile(layerPath(m.Dir, stones), buf, 0o644)
}

func (m *MmapBackend) Load(stones int) ([]int8, error) {
	if mp, ok := m.maps[stones]; ok {
		return bytesToInt8(mp), nil
	}

	f, err := os.Open(layerPath(m.Dir, stones))
	if err != nil {
		return nil, err
	}
	mp, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("egdb: mmap layer %d: %w", stones, err)
	}
	m.handles[stones] = f
	m.maps[stones] = mp
	return bytesToInt8(mp), nil
}

// Close unmaps and closes every layer file this backend has opened.
func (m *MmapBackend) Close() error {
	var firstErr error
	for stones, mp := range m.maps {
		if err := mp.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
		if f, ok := m.handles[stones]; ok {
			f.Close()
		}
	}
	m.maps = make(map[int]mmap.MMap)
	m.handles = make(map[int]*os.File)
	return firstErr
}

func bytesToInt8(b []byte) []int8 {
	out := make([]int8, len(b))
	for i, v := range b {
		out[i] = int8(v)
	}
	return out
}
