// Package egdb implements the endgame database: combinatorially ranked
// per-stone-count layers, generated by retrograde fixpoint and probed
// during search once a position's remaining stone count falls within the
// generated range.
package egdb

import (
	"fmt"

	"github.com/kurtz/sowcore/internal/board"
)

// Sentinel values for an unresolved layer slot.
const (
	Uncomputed int8 = 127
	Visiting   int8 = 126
)

// Layer holds the resolved (store[mine]-store[opp]) advantage for every
// composition of Stones stones across the 12 play pits, canonicalized to
// side-to-move-first order.
type Layer struct {
	Stones int
	Values []int8
}

// Table is a full endgame database for one sowing ruleset, covering stone
// counts 1..MaxStones.
type Table struct {
	Rules     board.Rules
	MaxStones int

	ways    [][]int64
	layers  []*Layer // index 0 unused; layers[1..MaxStones]
	backend Backend
}

// NewTable allocates a table shell; layers are populated by Generate or by
// lazily loading from backend on Probe.
func NewTable(rules board.Rules, maxStones int, backend Backend) *Table {
	return &Table{
		Rules:     rules,
		MaxStones: maxStones,
		ways:      BuildWaysTable(maxStones),
		layers:    make([]*Layer, maxStones+1),
		backend:   backend,
	}
}

// Progress reports generation progress for one layer; called roughly 200
// times over the layer's index space.
type Progress func(stones int, done, total int64)

// Generate computes every layer from s=1 up to MaxStones, persisting each
// completed layer to the backend before moving to the next.
func (t *Table) Generate(progress Progress) error {
	for s := 1; s <= t.MaxStones; s++ {
		size := LayerSize(s, t.ways)
		layer := &Layer{Stones: s, Values: make([]int8, size)}
		for i := range layer.Values {
			layer.Values[i] = Uncomputed
		}
		t.layers[s] = layer

		interval := size / 200
		if interval == 0 {
			interval = 1
		}

		for idx := int64(0); idx < size; idx++ {
			if layer.Values[idx] == Uncomputed {
				t.crunch(s, idx, layer)
			}
			if progress != nil && idx%interval == 0 {
				progress(s, idx, size)
			}
		}

		if t.backend != nil {
			if err := t.backend.Save(s, layer.Values); err != nil {
				return fmt.Errorf("egdb: save layer %d: %w", s, err)
			}
		}
	}
	return nil
}

// crunch resolves layer.Values[idx] by retrograde search over every legal
// move from the canonical position it unranks to, recursing into
// same-stone-count children and breaking same-ply cycles via the Visiting
// sentinel.
func (t *Table) crunch(s int, idx int64, layer *Layer) int8 {
	existing := layer.Values[idx]
	if existing != Uncomputed {
		if existing == Visiting {
			return 0
		}
		return existing
	}
	layer.Values[idx] = Visiting

	cells := Unrank(s, idx, t.ways)
	pos := canonicalPosition(cells)

	best := int8(0)
	any := false

	for i := 0; i < 6; i++ {
		if cells[i] == 0 {
			continue
		}
		child := pos
		child.ApplyMove(i, t.Rules)
		child.ProcessTerminal()

		diff := int(child.Cells[board.ScoreP1]) - int(child.Cells[board.ScoreP2])
		nextStones := playPitSum(&child)
		sameColor := child.Color == pos.Color

		var childScore int
		switch {
		case nextStones == 0:
			childScore = diff
		case nextStones < s:
			childCells := relabel(&child)
			rank := Rank(childCells, t.ways)
			var stored int8
			if t.layers[nextStones] != nil {
				stored = t.layers[nextStones].Values[rank]
			} else if t.backend != nil {
				data, err := t.backend.Load(nextStones)
				if err == nil && int(rank) < len(data) {
					stored = data[rank]
				}
			}
			if sameColor {
				childScore = diff + int(stored)
			} else {
				childScore = diff - int(stored)
			}
		default:
			childCells := relabel(&child)
			rank := Rank(childCells, t.ways)
			sub := t.crunch(s, rank, layer)
			if sameColor {
				childScore = diff + int(sub)
			} else {
				childScore = diff - int(sub)
			}
		}

		if !any || childScore > int(best) {
			best = int8(clampScore(childScore))
			any = true
		}
	}

	if !any {
		best = 0
	}
	layer.Values[idx] = best
	return best
}

// clampScore keeps retrograde sums representable in the int8 layer cell;
// a layer's value never exceeds its own stone count in magnitude, so this
// only takes effect when the table's MaxStones is above 125.
func clampScore(v int) int {
	if v > 125 {
		return 125
	}
	if v < -125 {
		return -125
	}
	return v
}

// canonicalPosition builds a zero-store position from a relabeled, side-
// to-move-first 12-pit composition, with Player +1 to move.
func canonicalPosition(cells [pitsPerSide]uint8) board.Position {
	var p board.Position
	copy(p.Cells[board.LBoundP1:board.HBoundP1+1], cells[0:6])
	copy(p.Cells[board.LBoundP2:board.HBoundP2+1], cells[6:12])
	p.Color = 1
	return p
}

// relabel returns a position's 12 play-pit cells reordered so the side to
// move's pits occupy 0..5, mirroring the cache package's translateBoard.
func relabel(p *board.Position) [pitsPerSide]uint8 {
	var cells [pitsPerSide]uint8
	if p.Color == 1 {
		copy(cells[0:6], p.Cells[board.LBoundP1:board.HBoundP1+1])
		copy(cells[6:12], p.Cells[board.LBoundP2:board.HBoundP2+1])
	} else {
		copy(cells[0:6], p.Cells[board.LBoundP2:board.HBoundP2+1])
		copy(cells[6:12], p.Cells[board.LBoundP1:board.HBoundP1+1])
	}
	return cells
}

func playPitSum(p *board.Position) int {
	total := 0
	for i := board.LBoundP1; i <= board.HBoundP1; i++ {
		total += int(p.Cells[i])
	}
	for i := board.LBoundP2; i <= board.HBoundP2; i++ {
		total += int(p.Cells[i])
	}
	return total
}

// Probe returns the exact evaluation for pos if its remaining stone count
// falls within a generated layer.
func (t *Table) Probe(pos *board.Position, totalConfigured int) (value int, ok bool) {
	stonesLeft := totalConfigured - int(pos.Cells[board.ScoreP1]) - int(pos.Cells[board.ScoreP2])
	if stonesLeft < 1 || stonesLeft > t.MaxStones {
		return 0, false
	}

	cells := relabel(pos)
	rank := Rank(cells, t.ways)

	var stored int8
	layer := t.layers[stonesLeft]
	switch {
	case layer != nil:
		if int(rank) >= len(layer.Values) {
			return 0, false
		}
		stored = layer.Values[rank]
	case t.backend == nil:
		return 0, false
	default:
		if bp, ok := t.backend.(BlockProber); ok {
			v, err := bp.ProbeBlock(stonesLeft, rank)
			if err != nil {
				return 0, false
			}
			stored = v
		} else {
			data, err := t.backend.Load(stonesLeft)
			if err != nil {
				return 0, false
			}
			layer = &Layer{Stones: stonesLeft, Values: data}
			t.layers[stonesLeft] = layer
			if int(rank) >= len(layer.Values) {
				return 0, false
			}
			stored = layer.Values[rank]
		}
	}
	if stored == Uncomputed || stored == Visiting {
		return 0, false
	}

	value = int(pos.Color)*(int(pos.Cells[board.ScoreP1])-int(pos.Cells[board.ScoreP2])) + int(stored)
	return value, true
}
