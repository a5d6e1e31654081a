// Package search implements the negamax kernel, the aspiration-window
// iterative-deepening driver, and the root trace/distribution reports that
// sit above the board, cache, and endgame database packages.
package search

import (
	"github.com/kurtz/sowcore/internal/board"
	"github.com/kurtz/sowcore/internal/cache"
	"github.com/kurtz/sowcore/internal/egdb"
)

// Solver selects whether a search consults the transposition cache.
type Solver uint8

const (
	CacheLocal Solver = iota
	NoCacheGlobal
)

// MaxDepth bounds one-shot (depth==0, timeLimit==0) searches.
const MaxDepth = 64

// NoMove indicates no move was recorded, e.g. an empty distribution slot.
const NoMove = -1

// DistributionSentinel fills an empty pit's slot in a distribution report.
const DistributionSentinel = -1 << 31

// Context bundles the shared, mostly-read-only resources a search needs:
// the board ruleset, an optional cache, and an optional endgame database.
// A single Context is shared by the driver's main thread and every helper
// thread.
type Context struct {
	Rules       board.Rules
	Cache       *cache.Cache
	Egdb        *egdb.Table
	TotalStones int
}

func storeComponent(p *board.Position) int {
	return int(p.Color) * (int(p.Cells[board.ScoreP1]) - int(p.Cells[board.ScoreP2]))
}
