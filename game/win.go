package game

// The 12 standard lines on a 5x5 card: 5 rows, 5 columns, 2 diagonals.
// Cell indices are row-major, 0..24.
var winningLines = [12][5]int{
	{0, 1, 2, 3, 4},
	{5, 6, 7, 8, 9},
	{10, 11, 12, 13, 14},
	{15, 16, 17, 18, 19},
	{20, 21, 22, 23, 24},
	{0, 5, 10, 15, 20},
	{1, 6, 11, 16, 21},
	{2, 7, 12, 17, 22},
	{3, 8, 13, 18, 23},
	{4, 9, 14, 19, 24},
	{0, 6, 12, 18, 24},
	{4, 8, 12, 16, 20},
}

// HasWinningLine is the single authoritative pattern check: it reports whether
// at least one line has every cell drawn, with the FREE center always counted
// as satisfied. Blank cells never match. Every claim path goes through here,
// regardless of what the submitting client believed.
func HasWinningLine(cells []string, drawn map[string]bool) bool {
	if len(cells) != CellCount {
		return false
	}
	for _, line := range winningLines {
		hit := true
		for _, idx := range line {
			c := cells[idx]
			if c == FreeCell {
				continue
			}
			if c == "" || !drawn[c] {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}

// DrawnSet builds the membership set the pattern check consumes.
func DrawnSet(sequence []string) map[string]bool {
	set := make(map[string]bool, len(sequence))
	for _, n := range sequence {
		set[n] = true
	}
	return set
}
