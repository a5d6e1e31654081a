package board

// Move is a pit index in [0,5] or [7,12] whose cell is nonzero for the side
// to move.
type Move int8

// NoMove indicates no legal move was found or recorded.
const NoMove Move = -1

// blockedIndex returns the cell just before the opponent's store for the
// side currently to move; sowing past that cell advances two steps, so the
// opponent's store is skipped.
func blockedIndex(turn bool) int {
	if turn {
		return ScoreP2 - 1
	}
	return ScoreP1 - 1
}

func wrap(index int) int {
	if index > HBoundP2+1 {
		return index - ASize
	}
	return index
}

// applyClassic sows pit idx under classic rules: the last stone landing in
// own store grants another turn; landing in an own, previously-empty play
// pit whose mirror is nonzero captures both into the own store.
func applyClassic(p *Position, idx int) {
	stones := int(p.Cells[idx])
	p.Cells[idx] = 0

	turn := p.Color == 1
	blocked := blockedIndex(turn)
	index := idx

	for i := 0; i < stones; i++ {
		if index == blocked {
			index += 2
		} else {
			index++
		}
		index = wrap(index)
		p.Cells[index]++
	}

	if (index == ScoreP1 && turn) || (index == ScoreP2 && !turn) {
		return
	}

	if p.Cells[index] == 1 {
		mirror := HBoundP2 - index
		mirrorValue := p.Cells[mirror]
		if mirrorValue != 0 {
			if !turn && index > ScoreP1 {
				p.Cells[ScoreP2] += mirrorValue + 1
				p.Cells[mirror] = 0
				p.Cells[index] = 0
			} else if turn && index < ScoreP1 {
				p.Cells[ScoreP1] += mirrorValue + 1
				p.Cells[mirror] = 0
				p.Cells[index] = 0
			}
		}
	}

	p.Color = p.Color.Other()
}

// applyAvalanche sows pit idx under avalanche rules: classic sowing without
// the capture rule, and on landing in a non-empty play pit that pit is
// re-sown as a fresh source; the chain ends on an empty pit or own store.
func applyAvalanche(p *Position, idx int) {
	turn := p.Color == 1
	blocked := blockedIndex(turn)
	index := idx

	for {
		stones := int(p.Cells[index])
		p.Cells[index] = 0

		for i := 0; i < stones; i++ {
			if index == blocked {
				index += 2
			} else {
				index++
			}
			index = wrap(index)
			p.Cells[index]++
		}

		if (index == ScoreP1 && turn) || (index == ScoreP2 && !turn) {
			return
		}

		if p.Cells[index] <= 1 {
			break
		}
	}

	p.Color = p.Color.Other()
}
