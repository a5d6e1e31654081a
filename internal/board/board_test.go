package board

import (
	"math/rand"
	"testing"
)

func sum(p *Position) int {
	total := 0
	for _, c := range p.Cells {
		total += int(c)
	}
	return total
}

// TestStoneConservation is a perft-style exhaustive check: for every legal
// sequence of moves up to a bounded depth, the total stone count never
// changes.
func TestStoneConservation(t *testing.T) {
	for _, rules := range []Rules{Classic, Avalanche} {
		var p Position
		p.ConfigureUniform(4)
		total := sum(&p)

		var walk func(pos Position, depth int)
		walk = func(pos Position, depth int) {
			if depth == 0 {
				return
			}
			if pos.ProcessTerminal() {
				if sum(&pos) != total {
					t.Fatalf("rules=%v: stones not conserved after terminal sweep: got %d want %d", rules, sum(&pos), total)
				}
				return
			}
			start, end := HBoundP1, LBoundP1
			if pos.Color == -1 {
				start, end = HBoundP2, LBoundP2
			}
			for i := start; i >= end; i-- {
				if pos.Cells[i] == 0 {
					continue
				}
				child := pos.Copy()
				child.ApplyMove(i, rules)
				if sum(&child) != total {
					t.Fatalf("rules=%v: stones not conserved after move %d: got %d want %d", rules, i, sum(&child), total)
				}
				walk(child, depth-1)
			}
		}
		walk(p, 5)
	}
}

// TestTerminalClosure checks that once ProcessTerminal reports the game
// ended, both play-pit ranges are empty and all stones are in the stores.
func TestTerminalClosure(t *testing.T) {
	var p Position
	p.Cells[LBoundP1] = 1
	p.Color = 1
	p.ApplyMove(LBoundP1, Classic)
	if !p.ProcessTerminal() {
		t.Fatalf("expected terminal: player two's side is empty")
	}
	for i := LBoundP1; i <= HBoundP1; i++ {
		if p.Cells[i] != 0 {
			t.Errorf("cell %d not empty: %d", i, p.Cells[i])
		}
	}
	for i := LBoundP2; i <= HBoundP2; i++ {
		if p.Cells[i] != 0 {
			t.Errorf("cell %d not empty: %d", i, p.Cells[i])
		}
	}
}

// TestScenarioC verifies the capture-skip-on-own-store rule.
func TestScenarioC(t *testing.T) {
	p := Position{Cells: [ASize]uint8{0, 0, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0}, Color: 1}
	p.ApplyMove(5, Classic)

	if p.Cells[ScoreP1] != 1 {
		t.Errorf("store[+1] = %d, want 1", p.Cells[ScoreP1])
	}
	if p.Color != 1 {
		t.Errorf("side flipped, want no flip (stone landed in own store)")
	}
}

// TestScenarioD verifies the steal/capture rule.
func TestScenarioD(t *testing.T) {
	p := Position{Cells: [ASize]uint8{2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0}, Color: 1}
	p.ApplyMove(0, Classic)

	if p.Cells[ScoreP1] != 4 {
		t.Errorf("store[+1] = %d, want 4", p.Cells[ScoreP1])
	}
	if p.Cells[2] != 0 || p.Cells[10] != 0 {
		t.Errorf("captured pits not cleared: pit2=%d pit10=%d", p.Cells[2], p.Cells[10])
	}
	if p.Color != -1 {
		t.Errorf("side did not flip after capture")
	}
}

// TestScenarioE verifies avalanche chain-sowing ending on own store.
func TestScenarioE(t *testing.T) {
	p := Position{Cells: [ASize]uint8{0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0}, Color: 1}
	p.ApplyMove(4, Avalanche)

	if p.Cells[4] != 0 || p.Cells[5] != 1 || p.Cells[ScoreP1] != 1 {
		t.Errorf("unexpected board after avalanche move: pit4=%d pit5=%d store=%d", p.Cells[4], p.Cells[5], p.Cells[ScoreP1])
	}
	if p.Color != 1 {
		t.Errorf("side flipped, want no flip (chain ended in own store)")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		var p Position
		p.ConfigureRandom(4, rng)
		if i%2 == 0 {
			p.Color = -1
		}

		code := p.Encode()
		if len(code) != 27 {
			t.Fatalf("encoded length = %d, want 27", len(code))
		}

		got, err := Decode(code)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != p {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, p)
		}
	}
}

// TestEncodeDecodeBoundaryCell exercises cell 7, whose 8 bits straddle the
// low/high 64-bit word boundary (shift=57..64): a naive pack/unpack drops
// its high bit for any value >= 128.
func TestEncodeDecodeBoundaryCell(t *testing.T) {
	for _, v := range []uint8{127, 128, 200, 255} {
		var p Position
		p.Color = 1
		p.Cells[7] = v

		code := p.Encode()
		got, err := Decode(code)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != p {
			t.Fatalf("cell 7 = %d: round trip mismatch: got %+v, want %+v", v, got, p)
		}
	}
}

func TestConfigureRandomMirrored(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var p Position
	p.ConfigureRandom(4, rng)
	for i := 0; i < 6; i++ {
		if p.Cells[i] != p.Cells[i+LBoundP2] {
			t.Errorf("pit %d = %d, mirror pit %d = %d, want equal", i, p.Cells[i], i+LBoundP2, p.Cells[i+LBoundP2])
		}
	}
	if sum(&p) != 4*12 {
		t.Errorf("total stones = %d, want %d", sum(&p), 4*12)
	}
}
