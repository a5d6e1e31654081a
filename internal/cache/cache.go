// Package cache implements the search's transposition cache: a fixed-size,
// lock-free, two-slot bucketed table keyed on a side-to-move-invariant
// encoding of the twelve play pits. The packed layout is selected at
// configuration time by key width (48 or 60 bits), tag width (16 or 32
// bits) and whether a search-depth field is stored alongside the value.
// A 16-bit tag needs at least 32 index bits, which the accepted sizePow
// range [1,30] never gives, so in practice four layouts are selected.
package cache

import (
	"fmt"
	"sync/atomic"

	"github.com/kurtz/sowcore/internal/board"
)

// Bound classifies a stored value relative to the window it was produced
// under.
type Bound uint8

const (
	Exact Bound = iota
	Lower
	Upper
)

const (
	// CacheValUnset marks an empty or not-yet-written slot.
	CacheValUnset int16 = 32767
	// CacheValMin/CacheValMax bound the packable evaluation range; values
	// outside this range are never cached (EncodeOutOfRange).
	CacheValMin = (-32768 >> 2) + 2
	CacheValMax = 32767 >> 2
	// DepthSolved marks an entry as exact regardless of the search depth
	// that produced it (one-shot mode, or a node resolved by ProcessTerminal
	// or an EGDB hit).
	DepthSolved uint16 = 65535
)

// PackValue combines an evaluation and a bound into the int16 stored in a
// slot's value field.
func PackValue(eval int, bound Bound) int16 {
	return int16(eval<<2) | int16(bound)
}

// UnpackValue splits a slot's stored value back into evaluation and bound.
func UnpackValue(packed int16) (eval int, bound Bound) {
	return int(packed >> 2), Bound(packed & 3)
}

// CompressMode controls whether the 60-bit key layout is narrowed to 48
// bits to keep the tag within a supported width.
type CompressMode uint8

const (
	CompressAuto CompressMode = iota
	CompressAlways
	CompressNever
)

// Mode describes one of the six resolved packed layouts.
type Mode struct {
	KeyBits  int
	TagBits  int
	HasDepth bool

	indexBits int
	cellBits  int // bits per play pit in the packed key: 4 (48-bit) or 5 (60-bit)
	cellMask  uint64
}

// ResolveMode mirrors the original reconfigureCache dispatch: given a
// bucket-count exponent and a compression preference, pick key width, tag
// width, and validate the combination is satisfiable.
func ResolveMode(sizePow int, compress CompressMode, hasDepth bool) (Mode, error) {
	if sizePow < 1 || sizePow > 30 {
		return Mode{}, fmt.Errorf("cache: sizePow %d out of range [1,30]", sizePow)
	}
	indexBits := sizePow - 1
	required60 := 60 - indexBits

	useCompress := compress == CompressAlways || (compress == CompressAuto && required60 > 32)

	keyBits := 60
	if useCompress {
		keyBits = 48
	}
	required := keyBits - indexBits
	if required < 0 {
		required = 0
	}

	var tagBits int
	switch {
	case keyBits == 60:
		tagBits = 32
	case required <= 16:
		tagBits = 16
	default:
		tagBits = 32
	}

	if required > tagBits {
		return Mode{}, fmt.Errorf("cache: ConfigInvalid: sizePow=%d cannot satisfy keyBits(%d)-indexBits(%d)=%d <= tagBits(%d)",
			sizePow, keyBits, indexBits, required, tagBits)
	}

	cellBits := 4
	if keyBits == 60 {
		cellBits = 5
	}

	return Mode{
		KeyBits:   keyBits,
		TagBits:   tagBits,
		HasDepth:  hasDepth,
		indexBits: indexBits,
		cellBits:  cellBits,
		cellMask:  (uint64(1) << cellBits) - 1,
	}, nil
}

// slot is one of the two entries in a bucket. All fields are accessed with
// atomic loads/stores so a reader and a concurrent writer never observe a
// torn struct.
type slot struct {
	tag   atomic.Uint64
	value atomic.Int64 // holds int16 pack, sign-extended
	depth atomic.Uint32
}

func (s *slot) load() (tag uint64, value int16, depth uint32) {
	t1 := s.tag.Load()
	v := s.value.Load()
	d := s.depth.Load()
	t2 := s.tag.Load()
	if t1 != t2 {
		return 0, CacheValUnset, 0
	}
	return t1, int16(v), d
}

func (s *slot) store(tag uint64, value int16, depth uint32) {
	s.tag.Store(0) // invalidate readers mid-write
	s.value.Store(int64(value))
	s.depth.Store(depth)
	s.tag.Store(tag)
}

// Bucket holds the MRU (slot 0) and LRU (slot 1) entries for one index.
type Bucket struct {
	slots [2]slot
}

// Cache is the fixed-size transposition table. It is safe for concurrent
// use by many searching goroutines; any writer may evict any other
// writer's entries, and stale reads are discarded rather than blocked on.
type Cache struct {
	mode    Mode
	buckets []Bucket

	stores           atomic.Uint64
	probes           atomic.Uint64
	hits             atomic.Uint64
	hitsLegal        atomic.Uint64
	lruSwaps         atomic.Uint64
	overwriteImprove atomic.Uint64
	overwriteEvict   atomic.Uint64
	failStones       atomic.Uint64
	failRange        atomic.Uint64
}

// New allocates a cache with 2^(sizePow-1) buckets under the resolved mode.
func New(sizePow int, compress CompressMode, hasDepth bool) (*Cache, error) {
	mode, err := ResolveMode(sizePow, compress, hasDepth)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		mode:    mode,
		buckets: make([]Bucket, 1<<mode.indexBits),
	}
	c.Clear()
	return c, nil
}

// Mode reports the cache's resolved layout.
func (c *Cache) Mode() Mode { return c.mode }

// Clear resets every bucket in place; the backing allocation is reused.
func (c *Cache) Clear() {
	for i := range c.buckets {
		b := &c.buckets[i]
		for s := range b.slots {
			b.slots[s].tag.Store(0)
			b.slots[s].value.Store(int64(CacheValUnset))
			b.slots[s].depth.Store(0)
		}
	}
	c.stores.Store(0)
	c.probes.Store(0)
	c.hits.Store(0)
	c.hitsLegal.Store(0)
	c.lruSwaps.Store(0)
	c.overwriteImprove.Store(0)
	c.overwriteEvict.Store(0)
	c.failStones.Store(0)
	c.failRange.Store(0)
}

// NewSearch resets per-search hit-rate counters without touching entries,
// mirroring the original NewSearch/age bump.
func (c *Cache) NewSearch() {
	c.probes.Store(0)
	c.hits.Store(0)
}

// translateBoard packs the twelve play-pit cells (store cells ignored) into
// a mode-width key, side-to-move always occupying "half A" so that a
// position and its color-mirrored twin hash identically.
func (c *Cache) translateBoard(p *board.Position) (key uint64, ok bool) {
	var cells [12]uint8
	if p.Color == 1 {
		copy(cells[0:6], p.Cells[board.LBoundP1:board.HBoundP1+1])
		copy(cells[6:12], p.Cells[board.LBoundP2:board.HBoundP2+1])
	} else {
		copy(cells[0:6], p.Cells[board.LBoundP2:board.HBoundP2+1])
		copy(cells[6:12], p.Cells[board.LBoundP1:board.HBoundP1+1])
	}

	var packed uint64
	for i, v := range cells {
		if uint64(v) > c.mode.cellMask {
			return 0, false
		}
		packed |= uint64(v) << uint(i*c.mode.cellBits)
	}

	if c.mode.KeyBits == 60 {
		return mix60(packed), true
	}
	return mix48(packed), true
}

func (c *Cache) bucketAndTag(key uint64) (index uint64, tag uint64) {
	indexMask := uint64(1)<<c.mode.indexBits - 1
	index = key & indexMask
	tag = key >> c.mode.indexBits
	return
}

// Probe looks up p. ok is false on a miss, an out-of-range position, or a
// torn concurrent read (treated identically to a miss).
func (c *Cache) Probe(p *board.Position, depth uint16) (value int16, bound Bound, storedDepth uint16, solved bool, ok bool) {
	c.probes.Add(1)
	key, valid := c.translateBoard(p)
	if !valid {
		c.failStones.Add(1)
		return 0, 0, 0, false, false
	}
	index, tag := c.bucketAndTag(key)
	b := &c.buckets[index]

	for s := 0; s < 2; s++ {
		gotTag, packed, gotDepth := b.slots[s].load()
		if packed == CacheValUnset || gotTag != tag {
			continue
		}
		c.hits.Add(1)
		d := uint16(gotDepth)
		if c.mode.HasDepth && d != DepthSolved && d < depth {
			continue
		}
		c.hitsLegal.Add(1)
		eval, bnd := UnpackValue(packed)
		if s == 1 {
			// LRU promotion: swap slot contents field-by-field so no whole
			// slot (which embeds atomic fields) is ever copied by value.
			// Best-effort under contention; a lost swap does not affect
			// correctness.
			oTag, oVal, oDepth := b.slots[0].load()
			b.slots[0].store(gotTag, packed, gotDepth)
			b.slots[1].store(oTag, oVal, oDepth)
			c.lruSwaps.Add(1)
		}
		return int16(eval), bnd, d, d == DepthSolved, true
	}
	return 0, 0, 0, false, false
}

// depthGE reports whether newDepth supersedes oldDepth for the purpose of a
// same-tag update: DepthSolved is numerically the largest value, so a
// solved result always supersedes and is never downgraded by a shallower
// re-search.
func depthGE(newDepth, oldDepth uint16) bool { return newDepth >= oldDepth }

// Store writes an entry for p following the six-step algorithm: same-tag
// update only if depth does not regress, else fill an empty slot, else
// evict the shallower (ties: prefer evicting a non-EXACT bound, ultimate
// tie: evict slot 1).
func (c *Cache) Store(p *board.Position, eval int, bound Bound, depth uint16, solved bool) {
	if eval < CacheValMin || eval > CacheValMax {
		c.failRange.Add(1)
		return
	}
	key, valid := c.translateBoard(p)
	if !valid {
		c.failStones.Add(1)
		return
	}
	index, tag := c.bucketAndTag(key)
	b := &c.buckets[index]

	d := depth
	if solved || !c.mode.HasDepth {
		d = DepthSolved
	}
	packed := PackValue(eval, bound)

	tag0, val0, depth0 := b.slots[0].load()
	tag1, val1, depth1 := b.slots[1].load()

	if val0 != CacheValUnset && tag0 == tag {
		if depthGE(d, uint16(depth0)) {
			b.slots[0].store(tag, packed, uint32(d))
			c.overwriteImprove.Add(1)
			c.stores.Add(1)
		}
		return
	}
	if val1 != CacheValUnset && tag1 == tag {
		if depthGE(d, uint16(depth1)) {
			b.slots[1].store(tag, packed, uint32(d))
			c.overwriteImprove.Add(1)
			c.stores.Add(1)
		}
		return
	}

	if val0 == CacheValUnset {
		b.slots[0].store(tag, packed, uint32(d))
		c.stores.Add(1)
		return
	}
	if val1 == CacheValUnset {
		b.slots[1].store(tag, packed, uint32(d))
		c.stores.Add(1)
		return
	}

	victim := victimSlot(c.mode.HasDepth, uint16(depth0), uint16(depth1), int16(val0), int16(val1))
	b.slots[victim].store(tag, packed, uint32(d))
	c.overwriteEvict.Add(1)
	c.stores.Add(1)
}

// victimSlot picks which occupied slot to evict: the shallower one when
// depth-aware; on a depth tie (or when the mode carries no depth field)
// prefer evicting a non-EXACT bound; the ultimate tie evicts slot 1.
func victimSlot(hasDepth bool, depth0, depth1 uint16, val0, val1 int16) int {
	if hasDepth && depth0 != depth1 {
		if depth0 < depth1 {
			return 0
		}
		return 1
	}
	_, bound0 := UnpackValue(val0)
	_, bound1 := UnpackValue(val1)
	if bound0 != Exact && bound1 == Exact {
		return 0
	}
	return 1
}

// HashFull estimates per-mille bucket occupancy by sampling the first 1000
// buckets, matching the original's cheap approximation.
func (c *Cache) HashFull() int {
	n := len(c.buckets)
	if n == 0 {
		return 0
	}
	sample := n
	if sample > 1000 {
		sample = 1000
	}
	filled := 0
	for i := 0; i < sample; i++ {
		if _, v, _ := c.buckets[i].slots[0].load(); v != CacheValUnset {
			filled++
		}
	}
	return filled * 1000 / sample
}

// HitRate returns the fraction of probes since the last NewSearch that hit.
func (c *Cache) HitRate() float64 {
	p := c.probes.Load()
	if p == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(p)
}
