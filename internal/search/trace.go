package search

import (
	"sync/atomic"

	"github.com/kurtz/sowcore/internal/board"
)

// DistributionEntry is one child's evaluation in a root distribution
// report.
type DistributionEntry struct {
	PitIndex int
	Score    int
}

// Distribution reports a full-depth evaluation of every legal move at the
// root, in pit order (not sorted), with DistributionSentinel marking empty
// pits.
type Distribution struct {
	Scores [6]int
	Solved bool
}

// DistributionRoot evaluates every legal move from root's six play pits
// independently at the given depth, returning the per-pit score vector.
func (d *Driver) DistributionRoot(root *board.Position, depth int, clip bool) Distribution {
	var abort atomic.Bool
	worker := NewWorker(d.ctx, 0, &abort)

	lo := board.LBoundP1
	if root.Color != 1 {
		lo = board.LBoundP2
	}

	var out Distribution
	out.Solved = true
	for i := 0; i < 6; i++ {
		pit := lo + i
		if root.Cells[pit] == 0 {
			out.Scores[i] = DistributionSentinel
			continue
		}
		child := root.Copy()
		child.ApplyMove(pit, d.ctx.Rules)

		var score int
		var solved bool
		if child.Color == root.Color {
			score, solved, _ = worker.Negamax(&child, negInf+1, posInf, depth, clip, NoMove)
		} else {
			s, sol, _ := worker.Negamax(&child, negInf+1, posInf, depth, clip, NoMove)
			score, solved = -s, sol
		}
		if clip && score > 1 {
			score = 1
		}
		out.Scores[i] = score
		if !solved {
			out.Solved = false
		}
	}
	return out
}

// TraceRoot re-runs negamax on root with the narrow aspiration window
// (eval-1,eval+1) from a prior completed search, recording the chosen
// move at each recursive level. The returned slice has one entry per ply
// reached before the game ended or depth ran out; unreached plies are -1.
func (d *Driver) TraceRoot(root *board.Position, depth, eval int, clip bool) []int {
	var abort atomic.Bool
	worker := NewWorker(d.ctx, 0, &abort)

	trace := make([]int, depth)
	for i := range trace {
		trace[i] = NoMove
	}

	var walk func(pos *board.Position, d int, level int)
	walk = func(pos *board.Position, d int, level int) {
		if level >= len(trace) {
			return
		}
		p := pos.Copy()
		if p.ProcessTerminal() || d == 0 {
			return
		}
		moves := orderMoves(&p, worker.ctx.Rules, NoMove)
		if len(moves) == 0 {
			return
		}

		best := moves[0]
		bestScore := negInf
		for _, m := range moves {
			var score int
			if m.child.Color == p.Color {
				score, _, _ = worker.Negamax(&m.child, eval-1, eval+1, d-1, clip, NoMove)
			} else {
				s, _, _ := worker.Negamax(&m.child, -(eval + 1), -(eval - 1), d-1, clip, NoMove)
				score = -s
			}
			if score > bestScore {
				bestScore = score
				best = m
			}
		}

		trace[level] = best.idx
		walk(&best.child, d-1, level+1)
	}

	walk(root, depth, 0)
	return trace
}
