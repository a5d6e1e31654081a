// Package board implements the sowing-board position: cell layout, move
// application under both rulesets, terminal detection, and evaluation.
package board

import "math/rand"

// Cell layout. Pits 0-5 belong to Player +1, pit 6 is Player +1's store.
// Pits 7-12 belong to Player -1, pit 13 is Player -1's store.
const (
	LBoundP1 = 0
	HBoundP1 = 5
	ScoreP1  = 6
	LBoundP2 = 7
	HBoundP2 = 12
	ScoreP2  = 13
	ASize    = 14
)

// Color is the side to move: +1 or -1.
type Color int8

// Other returns the opposing color.
func (c Color) Other() Color { return -c }

// Rules selects the sowing variant used for a position.
type Rules uint8

const (
	Classic Rules = iota
	Avalanche
)

// Position is a complete board state: 14 cell counts plus the side to move.
// Positions are value types; callers that want to retain a position across
// a mutating call must Copy it first.
type Position struct {
	Cells [ASize]uint8
	Color Color
}

// Copy returns an independent copy of the position.
func (p *Position) Copy() Position {
	return *p
}

// ConfigureUniform resets the position to the standard start: stonesPerPit
// stones in every play pit, empty stores, Player +1 to move.
func (p *Position) ConfigureUniform(stonesPerPit int) {
	for i := 0; i < ASize; i++ {
		p.Cells[i] = uint8(stonesPerPit)
	}
	p.Cells[ScoreP1] = 0
	p.Cells[ScoreP2] = 0
	p.Color = 1
}

// ConfigureRandom resets the position to a random mirrored distribution:
// stonesPerPit*6 stones are dropped one at a time into a uniformly random
// pit in [0,6), incrementing that pit and its mirror on the other side
// together, so both sides always end up with an identical distribution.
func (p *Position) ConfigureRandom(stonesPerPit int, rng *rand.Rand) {
	*p = Position{}
	remaining := stonesPerPit * 6
	for i := 0; i < remaining; i++ {
		idx := rng.Intn(6)
		p.Cells[idx]++
		p.Cells[idx+LBoundP2]++
	}
	p.Color = 1
}

// Evaluate returns store[+1] - store[-1].
func (p *Position) Evaluate() int {
	return int(p.Cells[ScoreP1]) - int(p.Cells[ScoreP2])
}

// isPlayerOneEmpty reports whether all of Player +1's play pits are empty.
func (p *Position) isPlayerOneEmpty() bool {
	for i := LBoundP1; i <= HBoundP1; i++ {
		if p.Cells[i] != 0 {
			return false
		}
	}
	return true
}

// isPlayerTwoEmpty reports whether all of Player -1's play pits are empty.
func (p *Position) isPlayerTwoEmpty() bool {
	for i := LBoundP2; i <= HBoundP2; i++ {
		if p.Cells[i] != 0 {
			return false
		}
	}
	return true
}

// IsTerminal reports whether either side's play pits are all empty, without
// sweeping remaining stones into stores.
func (p *Position) IsTerminal() bool {
	return p.isPlayerOneEmpty() || p.isPlayerTwoEmpty()
}

// ProcessTerminal sweeps any stones remaining on the non-empty side into
// that side's own store once the other side's play pits are all empty, and
// reports whether the game ended. Must be called after every move.
func (p *Position) ProcessTerminal() bool {
	if p.isPlayerOneEmpty() {
		for i := LBoundP2; i <= HBoundP2; i++ {
			p.Cells[ScoreP2] += p.Cells[i]
			p.Cells[i] = 0
		}
		return true
	}
	if p.isPlayerTwoEmpty() {
		for i := LBoundP1; i <= HBoundP1; i++ {
			p.Cells[ScoreP1] += p.Cells[i]
			p.Cells[i] = 0
		}
		return true
	}
	return false
}

// ApplyMove sows from pit idx according to rules, mutating p in place.
func (p *Position) ApplyMove(idx int, rules Rules) {
	switch rules {
	case Avalanche:
		applyAvalanche(p, idx)
	default:
		applyClassic(p, idx)
	}
}
