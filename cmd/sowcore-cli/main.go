// Command sowcore-cli is a minimal text REPL over the search core: it
// parses the human verb set from stdin and drives a Board/Cache/EGDB/
// Driver session. Rendering, menus, and turn orchestration beyond this
// verb table are treated as an external collaborator's concern.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kurtz/sowcore/internal/board"
	"github.com/kurtz/sowcore/internal/cache"
	"github.com/kurtz/sowcore/internal/egdb"
	"github.com/kurtz/sowcore/internal/search"
)

type session struct {
	pos     board.Position
	history []board.Position
	rules   board.Rules
	stones  int
	cache   *cache.Cache
	egdb    *egdb.Table
	solver  search.Solver
	clip    bool
	depth   int
	timeout time.Duration
	threads int
	rng     *rand.Rand
}

func newSession() *session {
	s := &session{
		rules:   board.Classic,
		stones:  4,
		solver:  search.CacheLocal,
		depth:   8,
		threads: 1,
		rng:     rand.New(rand.NewSource(1)),
	}
	s.pos.ConfigureUniform(s.stones)
	c, err := cache.New(20, cache.CompressAuto, true)
	if err == nil {
		s.cache = c
	}
	return s
}

func (s *session) driverContext() *search.Context {
	return &search.Context{Rules: s.rules, Cache: s.cache, Egdb: s.egdb, TotalStones: s.stones * 12}
}

func main() {
	seedFlag := flag.Int64("seed", time.Now().UnixNano(), "initial PRNG seed")
	flag.Parse()

	s := newSession()
	s.rng = rand.New(rand.NewSource(*seedFlag))

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("sowcore ready. type 'help' for verbs.")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !s.dispatch(line) {
			break
		}
	}
}

func (s *session) dispatch(line string) bool {
	fields := strings.Fields(line)
	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "start":
		s.pos.ConfigureUniform(s.stones)
		fmt.Println("ok")
	case "stones":
		if n, err := strconv.Atoi(arg(args, 0)); err == nil {
			s.stones = n
			s.pos.ConfigureUniform(n)
		}
	case "mode":
		switch arg(args, 0) {
		case "classic":
			s.rules = board.Classic
		case "avalanche":
			s.rules = board.Avalanche
		}
	case "depth":
		if n, err := strconv.Atoi(arg(args, 0)); err == nil {
			s.depth = n
		}
	case "time":
		if n, err := strconv.Atoi(arg(args, 0)); err == nil {
			s.timeout = time.Duration(n) * time.Millisecond
		}
	case "cache":
		s.reconfigureCache(arg(args, 0))
	case "solver":
		if arg(args, 0) == "global" {
			s.solver = search.NoCacheGlobal
		} else {
			s.solver = search.CacheLocal
		}
	case "clip":
		s.clip = arg(args, 0) == "true"
	case "autoplay", "player":
		// Turn orchestration across human/random/AI seats is an external
		// collaborator's concern; acknowledge the verb only.
	case "seed":
		if n, err := strconv.ParseInt(arg(args, 0), 10, 64); err == nil {
			s.rng = rand.New(rand.NewSource(n))
		}
	case "analyze":
		s.analyze()
	case "encode":
		fmt.Println(s.pos.Encode())
	case "load":
		if p, err := board.Decode(arg(args, 0)); err == nil {
			s.pos = p
		} else {
			fmt.Println("error:", err)
		}
	case "trace":
		s.trace()
	case "switch":
		s.pos.Color = s.pos.Color.Other()
	case "edit":
		s.edit(args)
	case "step":
		s.step()
	case "undo":
		s.undo()
	case "render", "menu":
		// Rendering and menu navigation are external collaborator concerns.
	case "help":
		printHelp()
	case "quit":
		return false
	default:
		fmt.Println("unknown verb:", verb)
	}
	return true
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (s *session) reconfigureCache(preset string) {
	sizePow := map[string]int{
		"TINY": 20, "SMALL": 22, "NORMAL": 24, "LARGE": 26, "EXTREME": 28,
	}[preset]
	if sizePow == 0 {
		if n, err := strconv.Atoi(preset); err == nil {
			sizePow = n
		} else {
			sizePow = 24
		}
	}
	c, err := cache.New(sizePow, cache.CompressAuto, true)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	s.cache = c
}

func (s *session) analyze() {
	ctx := s.driverContext()
	d := search.NewDriver(ctx)
	result := d.Run(&s.pos, search.SolverConfig{
		Solver:  s.solver,
		Depth:   s.depth,
		Time:    s.timeout,
		Clip:    s.clip,
		Threads: s.threads,
	})
	fmt.Printf("depth=%d score=%d move=%d solved=%v nodes=%s\n",
		result.Depth, result.Score, result.BestMove, result.Solved, humanize.Comma(int64(result.Nodes)))
	for _, w := range result.Warnings {
		fmt.Println("warning:", w)
	}
}

func (s *session) trace() {
	ctx := s.driverContext()
	d := search.NewDriver(ctx)
	result := d.Run(&s.pos, search.SolverConfig{Solver: s.solver, Depth: s.depth, Threads: 1})
	seq := d.TraceRoot(&s.pos, s.depth, result.Score, s.clip)
	fmt.Println(seq)
}

// edit sets a single cell directly, for constructing test positions. P
// (which side's pit index IDX refers to) is accepted but unused: IDX
// already addresses the absolute 0..13 cell space, so there's nothing
// left for P to disambiguate.
func (s *session) edit(args []string) {
	if len(args) < 3 {
		fmt.Println("usage: edit P IDX V")
		return
	}
	idx, err1 := strconv.Atoi(args[1])
	v, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil || idx < 0 || idx >= board.ASize {
		fmt.Println("invalid edit arguments")
		return
	}
	s.pos.Cells[idx] = uint8(v)
}

// step advances the position by one move. It plays the highest-index
// legal pit rather than consulting the search driver: picking an actual
// AI move is the external turn-orchestration collaborator's job (spec
// §1), this verb only needs to exercise ApplyMove/ProcessTerminal for
// manual board construction.
func (s *session) step() {
	lo, hi := board.LBoundP1, board.HBoundP1
	if s.pos.Color != 1 {
		lo, hi = board.LBoundP2, board.HBoundP2
	}
	for i := hi; i >= lo; i-- {
		if s.pos.Cells[i] != 0 {
			s.history = append(s.history, s.pos)
			s.pos.ApplyMove(i, s.rules)
			s.pos.ProcessTerminal()
			return
		}
	}
}

func (s *session) undo() {
	if len(s.history) == 0 {
		fmt.Println("nothing to undo")
		return
	}
	s.pos = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
}

func printHelp() {
	fmt.Println("verbs: start, stones N, mode classic|avalanche, depth N, time X, cache PRESET|N,")
	fmt.Println("       solver local|global, clip true|false, player 1|2 human|random|ai,")
	fmt.Println("       autoplay true|false, seed N, analyze, render, encode, load <code>, trace,")
	fmt.Println("       undo, switch, edit P IDX V, step, menu, help, quit")
}
