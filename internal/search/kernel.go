package search

import (
	"sort"
	"sync/atomic"

	"github.com/kurtz/sowcore/internal/board"
	"github.com/kurtz/sowcore/internal/cache"
)

// Worker holds per-thread search state: the node counter a driver flushes
// into the shared atomic total at depth boundaries, and the cooperative
// abort flag every node checks on entry.
type Worker struct {
	ctx      *Context
	ThreadID int
	Nodes    uint64
	abort    *atomic.Bool

	// OneShot marks a one-shot (no depth/time limit) search: the cache's
	// depth field is disabled for the duration, so every store is written
	// as SOLVED regardless of the node's own solved aggregation.
	OneShot bool
}

// NewWorker returns a worker bound to ctx and sharing abort with its
// siblings.
func NewWorker(ctx *Context, threadID int, abort *atomic.Bool) *Worker {
	return &Worker{ctx: ctx, ThreadID: threadID, abort: abort}
}

type orderedMove struct {
	idx   int
	key   int
	child board.Position
}

// orderMoves builds and sorts the legal moves from pos, iterating the
// mover's six pits from the highest index down for a stable tie-break, and
// optionally boosting prevBest (the prior depth's best move) to the front.
func orderMoves(pos *board.Position, rules board.Rules, prevBest int) []orderedMove {
	lo, hi := board.LBoundP1, board.HBoundP1
	if pos.Color != 1 {
		lo, hi = board.LBoundP2, board.HBoundP2
	}
	moverColor := int(pos.Color)

	moves := make([]orderedMove, 0, 6)
	for i := hi; i >= lo; i-- {
		if pos.Cells[i] == 0 {
			continue
		}
		child := pos.Copy()
		child.ApplyMove(i, rules)

		key := 1000
		if child.Color != pos.Color {
			key = moverColor * child.Evaluate()
		}
		if i == prevBest {
			key += 100000
		}
		moves = append(moves, orderedMove{idx: i, key: key, child: child})
	}

	sort.SliceStable(moves, func(a, b int) bool { return moves[a].key > moves[b].key })
	return moves
}

// rotatePV rotates moves[1:] by offset (mod len-1), leaving moves[0] (the
// PV candidate) untouched. Used by helper threads to diverge their search
// order without damaging the shared PV.
func rotatePV(moves []orderedMove, offset int) []orderedMove {
	if len(moves) < 3 || offset == 0 {
		return moves
	}
	rest := moves[1:]
	n := len(rest)
	offset %= n
	rotated := make([]orderedMove, 0, len(moves))
	rotated = append(rotated, moves[0])
	rotated = append(rotated, rest[offset:]...)
	rotated = append(rotated, rest[:offset]...)
	return rotated
}

// Negamax evaluates pos to the given depth under window (alpha,beta) and
// reports whether the result is exact (solved) rather than truncated by
// the depth cutoff or an abort. bestIdx is the index of the move that
// produced the returned score (NoMove at a terminal or depth-0 node).
func (w *Worker) Negamax(pos *board.Position, alpha, beta, depth int, clip bool, prevBest int) (score int, solved bool, bestIdx int) {
	p := pos.Copy()
	if p.ProcessTerminal() {
		return int(p.Color) * p.Evaluate(), true, NoMove
	}

	w.Nodes++
	if w.abort.Load() {
		return 0, false, NoMove
	}

	origAlpha := alpha

	if w.ctx.Cache != nil {
		if val, bound, _, csolved, ok := w.ctx.Cache.Probe(&p, uint16(depth)); ok {
			actual := int(val) + storeComponent(&p)
			switch bound {
			case cache.Exact:
				return actual, csolved, NoMove
			case cache.Lower:
				if actual > alpha {
					alpha = actual
				}
			case cache.Upper:
				if actual < beta {
					beta = actual
				}
			}
			if boundCutoff(alpha, beta, clip) {
				return actual, csolved, NoMove
			}
		}
	}

	if w.ctx.Egdb != nil {
		if val, ok := w.ctx.Egdb.Probe(&p, w.ctx.TotalStones); ok {
			return val, true, NoMove
		}
	}

	if depth == 0 {
		return int(p.Color) * p.Evaluate(), false, NoMove
	}

	moves := orderMoves(&p, w.ctx.Rules, prevBest)
	if w.ThreadID > 0 {
		moves = rotatePV(moves, w.ThreadID)
	}
	if len(moves) == 0 {
		return int(p.Color) * p.Evaluate(), true, NoMove
	}

	reference := negInf
	best := moves[0].idx
	allSolved := true

	for _, m := range moves {
		var childScore int
		var childSolved bool
		if m.child.Color == p.Color {
			childScore, childSolved, _ = w.Negamax(&m.child, alpha, beta, depth-1, clip, NoMove)
		} else {
			s, sol, _ := w.Negamax(&m.child, -beta, -alpha, depth-1, clip, NoMove)
			childScore, childSolved = -s, sol
		}
		if !childSolved {
			allSolved = false
		}

		if childScore > reference {
			reference = childScore
			best = m.idx
		}
		if reference > alpha {
			alpha = reference
		}
		if boundCutoff(alpha, beta, clip) {
			break
		}
	}

	bound := cache.Exact
	switch {
	case reference <= origAlpha:
		bound = cache.Upper
	case reference >= beta:
		bound = cache.Lower
	}

	if w.ctx.Cache != nil {
		relative := reference - storeComponent(&p)
		if relative >= cache.CacheValMin && relative <= cache.CacheValMax {
			w.ctx.Cache.Store(&p, relative, bound, uint16(depth), allSolved || w.OneShot)
		}
	}

	return reference, allSolved, best
}

func boundCutoff(alpha, beta int, clip bool) bool {
	if clip {
		return alpha >= beta || alpha >= 1
	}
	return alpha >= beta
}

const (
	negInf = -1 << 30
	posInf = 1 << 30
)
