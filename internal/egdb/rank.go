package egdb

// pitsPerSide is the number of play pits contributed by each player to a
// relabeled, side-to-move-first composition.
const pitsPerSide = 12

// BuildWaysTable precomputes ways[s][p] = C(s+p-1, p-1), the number of ways
// to distribute s stones across p pits, for s in [0,maxStones] and p in
// [0,pitsPerSide]. ways[0][p] = 1 for every p (the empty distribution);
// ways[s][1] = 1 (all stones forced into the one remaining pit).
func BuildWaysTable(maxStones int) [][]int64 {
	ways := make([][]int64, maxStones+1)
	for s := range ways {
		ways[s] = make([]int64, pitsPerSide+1)
	}
	for p := 0; p <= pitsPerSide; p++ {
		ways[0][p] = 1
	}
	for s := 1; s <= maxStones; s++ {
		ways[s][1] = 1
		for p := 2; p <= pitsPerSide; p++ {
			ways[s][p] = ways[s][p-1] + ways[s-1][p]
		}
	}
	return ways
}

// Rank computes the combinatorial index of a 12-pit composition with a
// known total stone count within layer[stones]. cells must already be
// relabeled so the side to move's pits occupy positions 0..5.
func Rank(cells [pitsPerSide]uint8, ways [][]int64) int64 {
	var idx int64
	stones := 0
	for _, c := range cells {
		stones += int(c)
	}
	pitsLeft := pitsPerSide
	for i := 0; i < pitsPerSide-1; i++ {
		v := int(cells[i])
		for k := 0; k < v; k++ {
			idx += ways[stones-k][pitsLeft-1]
		}
		stones -= v
		pitsLeft--
	}
	return idx
}

// Unrank reverses Rank: given the total stone count and a rank within
// layer[stones], it reconstructs the relabeled 12-pit composition.
func Unrank(stones int, idx int64, ways [][]int64) [pitsPerSide]uint8 {
	var cells [pitsPerSide]uint8
	pitsLeft := pitsPerSide
	for i := 0; i < pitsPerSide-1; i++ {
		v := 0
		for {
			contrib := ways[stones-v][pitsLeft-1]
			if idx < contrib {
				break
			}
			idx -= contrib
			v++
		}
		cells[i] = uint8(v)
		stones -= v
		pitsLeft--
	}
	cells[pitsPerSide-1] = uint8(stones)
	return cells
}

// LayerSize returns |layer(s)| = C(s+11,11), the number of distinct
// compositions of s stones across the 12 play pits.
func LayerSize(stones int, ways [][]int64) int64 {
	return ways[stones][pitsPerSide]
}
