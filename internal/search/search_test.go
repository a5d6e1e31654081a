package search

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/kurtz/sowcore/internal/board"
	"github.com/kurtz/sowcore/internal/cache"
	"github.com/kurtz/sowcore/internal/egdb"
)

// bruteForceNegamax is an unbounded-window, cache-free, EGDB-free negamax
// used only to cross-check the kernel's pruning against ground truth.
func bruteForceNegamax(pos *board.Position, rules board.Rules, depth int) int {
	p := pos.Copy()
	if p.ProcessTerminal() {
		return int(p.Color) * p.Evaluate()
	}
	if depth == 0 {
		return int(p.Color) * p.Evaluate()
	}

	lo, hi := board.LBoundP1, board.HBoundP1
	if p.Color != 1 {
		lo, hi = board.LBoundP2, board.HBoundP2
	}

	best := negInf
	any := false
	for i := lo; i <= hi; i++ {
		if p.Cells[i] == 0 {
			continue
		}
		child := p.Copy()
		child.ApplyMove(i, rules)

		var score int
		if child.Color == p.Color {
			score = bruteForceNegamax(&child, rules, depth-1)
		} else {
			score = -bruteForceNegamax(&child, rules, depth-1)
		}
		if !any || score > best {
			best = score
			any = true
		}
	}
	if !any {
		return int(p.Color) * p.Evaluate()
	}
	return best
}

func TestNegamaxMatchesBruteForce(t *testing.T) {
	for _, rules := range []board.Rules{board.Classic, board.Avalanche} {
		ctx := &Context{Rules: rules}
		var abort atomic.Bool
		worker := NewWorker(ctx, 0, &abort)

		var pos board.Position
		pos.ConfigureUniform(3)

		const depth = 5
		got, _, _ := worker.Negamax(&pos, negInf+1, posInf, depth, false, NoMove)
		want := bruteForceNegamax(&pos, rules, depth)
		if got != want {
			t.Fatalf("rules=%v: negamax=%d brute=%d", rules, got, want)
		}
	}
}

func TestDriverIdempotence(t *testing.T) {
	var pos board.Position
	pos.ConfigureUniform(3)

	run := func() Result {
		ctx := &Context{Rules: board.Classic}
		d := NewDriver(ctx)
		return d.Run(&pos, SolverConfig{Solver: NoCacheGlobal, Depth: 6, Threads: 1})
	}

	r1 := run()
	r2 := run()
	if r1.BestMove != r2.BestMove || r1.Score != r2.Score || r1.Solved != r2.Solved {
		t.Fatalf("driver not idempotent: %+v vs %+v", r1, r2)
	}
}

func TestEgdbConsistencyWithKernel(t *testing.T) {
	const maxStones = 5
	table := egdb.NewTable(board.Classic, maxStones, nil)
	if err := table.Generate(nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	cases := []board.Position{
		// color==+1 root: a root-level probe hits immediately.
		func() board.Position {
			var p board.Position
			p.Cells[0] = 2
			p.Cells[1] = 1
			p.Cells[8] = 2
			p.Color = 1
			return p
		}(),
		// color==-1 root: exercises the probe from the opposing seat, where
		// a sign-doubling bug would diverge from the brute kernel result.
		func() board.Position {
			var p board.Position
			p.Cells[7] = 2
			p.Cells[8] = 1
			p.Cells[1] = 2
			p.Color = -1
			return p
		}(),
	}

	for _, pos := range cases {
		ctxNoEgdb := &Context{Rules: board.Classic}
		var abort atomic.Bool
		worker := NewWorker(ctxNoEgdb, 0, &abort)
		want, _, _ := worker.Negamax(&pos, negInf+1, posInf, 20, false, NoMove)

		ctxEgdb := &Context{Rules: board.Classic, Egdb: table, TotalStones: maxStones}
		workerEgdb := NewWorker(ctxEgdb, 0, &abort)
		got, solved, _ := workerEgdb.Negamax(&pos, negInf+1, posInf, 20, false, NoMove)

		if !solved {
			t.Fatalf("color=%d: expected an EGDB-backed search over a fully-covered position to be solved", pos.Color)
		}
		if got != want {
			t.Fatalf("color=%d: egdb-assisted score %d != brute kernel score %d", pos.Color, got, want)
		}
	}
}

func TestClippedScoreClampedToOne(t *testing.T) {
	var pos board.Position
	pos.ConfigureUniform(4)

	ctx := &Context{Rules: board.Classic}
	d := NewDriver(ctx)
	result := d.Run(&pos, SolverConfig{Solver: NoCacheGlobal, Depth: 4, Clip: true, Threads: 1})
	if result.Score > 1 {
		t.Fatalf("clipped score %d exceeds the documented ceiling of 1", result.Score)
	}
}

func TestDistributionRootSentinelOnEmptyPit(t *testing.T) {
	var pos board.Position
	pos.Cells[0] = 3
	pos.Color = 1

	ctx := &Context{Rules: board.Classic}
	d := NewDriver(ctx)
	dist := d.DistributionRoot(&pos, 3, false)

	for i := 1; i < 6; i++ {
		if dist.Scores[i] != DistributionSentinel {
			t.Errorf("pit %d: expected sentinel for an empty pit, got %d", i, dist.Scores[i])
		}
	}
	if dist.Scores[0] == DistributionSentinel {
		t.Errorf("pit 0 should have a real score, got sentinel")
	}
}

func TestConcurrentDriverRace(t *testing.T) {
	var pos board.Position
	pos.ConfigureUniform(3)

	c, err := cache.New(18, cache.CompressAuto, true)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	ctx := &Context{Rules: board.Classic, Cache: c}
	d := NewDriver(ctx)

	result := d.Run(&pos, SolverConfig{
		Solver:  CacheLocal,
		Time:    50 * time.Millisecond,
		Threads: 4,
	})
	t.Logf("concurrent result: depth=%d score=%d nodes=%d", result.Depth, result.Score, result.Nodes)
}
