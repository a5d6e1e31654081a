package cache

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time snapshot of cache occupancy and quality,
// suitable for periodic persistence or CLI reporting.
type Stats struct {
	Mode             Mode
	Buckets          int
	Filled           int
	FillRate         float64
	ExactCount       int
	LowerCount       int
	UpperCount       int
	DepthHisto       [8]int
	Fragments        int
	PitCounts        [12]int64
	Stores           uint64
	Probes           uint64
	Hits             uint64
	HitsLegal        uint64
	LRUSwaps         uint64
	OverwriteImprove uint64
	OverwriteEvict   uint64
	FailStones       uint64
	FailRange        uint64
}

// Collect walks every bucket and every slot, tallying occupancy, bound
// distribution, a coarse depth histogram, the number of contiguous
// occupied-bucket runs (fragmentation chunks), and the per-pit stone
// distribution recovered by unmixing each stored key.
func (c *Cache) Collect() Stats {
	st := Stats{
		Mode:             c.mode,
		Buckets:          len(c.buckets),
		Stores:           c.stores.Load(),
		Probes:           c.probes.Load(),
		Hits:             c.hits.Load(),
		HitsLegal:        c.hitsLegal.Load(),
		LRUSwaps:         c.lruSwaps.Load(),
		OverwriteImprove: c.overwriteImprove.Load(),
		OverwriteEvict:   c.overwriteEvict.Load(),
		FailStones:       c.failStones.Load(),
		FailRange:        c.failRange.Load(),
	}

	prevOccupied := false
	for i := range c.buckets {
		b := &c.buckets[i]
		occupied := false
		for s := 0; s < 2; s++ {
			tag, packed, depth := b.slots[s].load()
			if packed == CacheValUnset {
				continue
			}
			occupied = true
			st.Filled++

			_, bound := UnpackValue(packed)
			switch bound {
			case Exact:
				st.ExactCount++
			case Lower:
				st.LowerCount++
			case Upper:
				st.UpperCount++
			}

			bin := depthBin(uint16(depth))
			st.DepthHisto[bin]++

			key := tag<<uint(c.mode.indexBits) | uint64(i)
			var packedKey uint64
			if c.mode.KeyBits == 60 {
				packedKey = unmix60(key)
			} else {
				packedKey = unmix48(key)
			}
			for p := 0; p < 12; p++ {
				v := (packedKey >> uint(p*c.mode.cellBits)) & c.mode.cellMask
				st.PitCounts[p] += int64(v)
			}
		}
		if occupied && !prevOccupied {
			st.Fragments++
		}
		prevOccupied = occupied
	}

	total := st.Buckets * 2
	if total > 0 {
		st.FillRate = float64(st.Filled) / float64(total)
	}
	return st
}

// Summary renders a one-line human-readable digest of the snapshot, for
// CLI or log reporting alongside the raw Stats fields.
func (st Stats) Summary() string {
	return fmt.Sprintf("%s/%s slots filled (%.1f%%), %s probes / %s hits, %d fragments",
		humanize.Comma(int64(st.Filled)), humanize.Comma(int64(st.Buckets*2)),
		st.FillRate*100, humanize.Comma(int64(st.Probes)), humanize.Comma(int64(st.Hits)), st.Fragments)
}

// depthBin buckets a stored depth into one of 8 histogram bins; solved
// entries occupy the top bin regardless of the depth that produced them.
func depthBin(depth uint16) int {
	if depth == DepthSolved {
		return 7
	}
	bin := int(depth) / 8
	if bin > 6 {
		bin = 6
	}
	return bin
}
