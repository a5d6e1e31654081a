package store

import (
	"os"
	"testing"

	"github.com/kurtz/sowcore/internal/board"
	"github.com/kurtz/sowcore/internal/cache"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "sowcore-store-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })
	t.Setenv("XDG_DATA_HOME", tmpDir)

	s, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEgdbMetaRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.LoadEgdbMeta(board.Classic); err != nil {
		t.Fatalf("LoadEgdbMeta: %v", err)
	} else if ok {
		t.Fatalf("expected no metadata before any save")
	}

	meta := EgdbMeta{Rules: board.Classic, MaxStones: 24, Compressed: true}
	if err := s.SaveEgdbMeta(meta); err != nil {
		t.Fatalf("SaveEgdbMeta: %v", err)
	}

	got, ok, err := s.LoadEgdbMeta(board.Classic)
	if err != nil {
		t.Fatalf("LoadEgdbMeta: %v", err)
	}
	if !ok {
		t.Fatalf("expected metadata after save")
	}
	if got.MaxStones != 24 || !got.Compressed {
		t.Fatalf("got %+v, want MaxStones=24 Compressed=true", got)
	}

	if _, ok, err := s.LoadEgdbMeta(board.Avalanche); err != nil {
		t.Fatalf("LoadEgdbMeta(avalanche): %v", err)
	} else if ok {
		t.Fatalf("classic metadata leaked into the avalanche key")
	}
}

func TestCacheStatsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	c, err := cache.New(18, cache.CompressAuto, true)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	stats := c.Collect()

	if err := s.SaveCacheStats(stats); err != nil {
		t.Fatalf("SaveCacheStats: %v", err)
	}

	snapshot, ok, err := s.LoadCacheStats()
	if err != nil {
		t.Fatalf("LoadCacheStats: %v", err)
	}
	if !ok {
		t.Fatalf("expected a snapshot after save")
	}
	if snapshot.Stats.Buckets != stats.Buckets {
		t.Errorf("got Buckets=%d, want %d", snapshot.Stats.Buckets, stats.Buckets)
	}
}
