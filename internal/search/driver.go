package search

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kurtz/sowcore/internal/board"
	"github.com/kurtz/sowcore/internal/cache"
)

// CompressMode re-exports the cache package's compression preference.
// SolverConfig has no compression field and the driver never reconfigures
// its cache; the cache's mode is fixed when the caller builds it.
type CompressMode = cache.CompressMode

// SolverConfig parameterizes one driver run.
type SolverConfig struct {
	Solver   Solver
	Depth    int // 0 = unlimited
	Time     time.Duration // 0 = unlimited
	Clip     bool
	Threads  int
	Progress ProgressFunc
}

// ProgressFunc is called after every accepted iterative-deepening step.
type ProgressFunc func(depth int, bestMove int, score int, totalNodes uint64)

// Result is a completed driver run's outcome.
type Result struct {
	BestMove     int
	Score        int
	Depth        int
	Solved       bool
	Nodes        uint64
	WindowMisses int
	Warnings     []string
	DepthTimes   map[int]time.Duration
}

// Driver owns the shared search context and the atomic state a root search
// coordinates across its helper threads.
type Driver struct {
	ctx *Context
}

// NewDriver returns a driver over ctx; ctx.Cache may be nil, selecting
// NoCacheGlobal behavior regardless of cfg.Solver.
func NewDriver(ctx *Context) *Driver {
	return &Driver{ctx: ctx}
}

// Run executes aspiration-window iterative deepening (or a one-shot full
// search) from root according to cfg, returning once a termination
// condition is met.
func (d *Driver) Run(root *board.Position, cfg SolverConfig) Result {
	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}

	useCache := cfg.Solver == CacheLocal && d.ctx.Cache != nil
	ctx := d.ctx
	if !useCache {
		ctx = &Context{Rules: d.ctx.Rules, Cache: nil, Egdb: d.ctx.Egdb, TotalStones: d.ctx.TotalStones}
	}
	if ctx.Cache != nil {
		ctx.Cache.NewSearch()
	}

	var abort atomic.Bool
	var totalNodes atomic.Uint64

	oneShot := cfg.Depth == 0 && cfg.Time == 0

	var wg sync.WaitGroup
	for t := 1; t < threads; t++ {
		wg.Add(1)
		go func(threadID int) {
			defer wg.Done()
			runHelper(ctx, root, cfg, threadID, &abort, &totalNodes, oneShot)
		}(t)
	}

	result := runMain(ctx, root, cfg, &abort, &totalNodes, oneShot)

	abort.Store(true)
	wg.Wait()

	result.Nodes = totalNodes.Load()
	return result
}

func runMain(ctx *Context, root *board.Position, cfg SolverConfig, abort *atomic.Bool, totalNodes *atomic.Uint64, oneShot bool) Result {
	worker := NewWorker(ctx, 0, abort)
	worker.OneShot = oneShot

	depthTimes := make(map[int]time.Duration)
	var warnings []string
	prevBest := NoMove
	windowMisses := 0

	currentDepth := 1
	if oneShot {
		currentDepth = MaxDepth
	}

	alpha, beta := negInf+1, posInf
	window := 1

	start := time.Now()
	var lastScore int
	var lastSolved bool

	for {
		iterStart := time.Now()

		reqAlpha, reqBeta := alpha, beta
		if cfg.Clip {
			reqAlpha, reqBeta = 0, 1
		}

		score, solved, best := worker.Negamax(root, reqAlpha, reqBeta, currentDepth, cfg.Clip, prevBest)
		if cfg.Clip && score > 1 {
			score = 1
		}

		if !cfg.Clip && score > reqAlpha && score < reqBeta {
			window = 1
		} else if !cfg.Clip {
			window *= 2
			windowMisses++
			alpha, beta = score-window, score+window
			continue
		}

		alpha, beta = score-1, score+1
		lastScore, lastSolved = score, solved
		if best != NoMove {
			prevBest = best
		}

		depthTimes[currentDepth] = time.Since(iterStart)
		totalNodes.Add(worker.Nodes)
		worker.Nodes = 0
		if cfg.Progress != nil {
			cfg.Progress(currentDepth, prevBest, score, totalNodes.Load())
		}

		if windowMisses > currentDepth {
			warnings = append(warnings, "high window misses")
		}
		if cfg.Clip && score < 0 {
			warnings = append(warnings, "clipped solver used in losing position")
		}

		if solved {
			break
		}
		if oneShot {
			break
		}
		if cfg.Depth != 0 && currentDepth >= cfg.Depth {
			break
		}
		if cfg.Time != 0 && time.Since(start) >= cfg.Time {
			break
		}
		currentDepth++
	}

	abort.Store(true)

	return Result{
		BestMove:     prevBest,
		Score:        lastScore,
		Depth:        currentDepth,
		Solved:       lastSolved,
		WindowMisses: windowMisses,
		Warnings:     warnings,
		DepthTimes:   depthTimes,
	}
}

// runHelper runs an independent aspiration loop with a PV-rotated move
// order; it contributes to the search only through the shared cache and
// exits as soon as abort is observed.
func runHelper(ctx *Context, root *board.Position, cfg SolverConfig, threadID int, abort *atomic.Bool, totalNodes *atomic.Uint64, oneShot bool) {
	worker := NewWorker(ctx, threadID, abort)
	worker.OneShot = oneShot
	currentDepth := 1
	if oneShot {
		currentDepth = MaxDepth
	}
	prevBest := NoMove

	for !abort.Load() {
		reqAlpha, reqBeta := negInf+1, posInf
		if cfg.Clip {
			reqAlpha, reqBeta = 0, 1
		}
		_, _, best := worker.Negamax(root, reqAlpha, reqBeta, currentDepth, cfg.Clip, prevBest)
		if best != NoMove {
			prevBest = best
		}
		totalNodes.Add(worker.Nodes)
		worker.Nodes = 0

		if oneShot {
			return
		}
		currentDepth++
		if cfg.Depth != 0 && currentDepth > cfg.Depth {
			currentDepth = 1
		}
	}
}
