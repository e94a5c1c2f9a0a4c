package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCard builds a deterministic 25-cell card: "01".."24" row-major with
// FREE at the center.
func testCard() []string {
	cells := make([]string, CellCount)
	n := 1
	for i := range cells {
		if i == FreeIndex {
			cells[i] = FreeCell
			continue
		}
		cells[i] = FormatNumber(n)
		n++
	}
	return cells
}

func TestHasWinningLineTopRow(t *testing.T) {
	cells := testCard()
	drawn := DrawnSet([]string{"01", "02", "03", "04", "05"})
	assert.True(t, HasWinningLine(cells, drawn))
}

func TestHasWinningLineFourOfFiveIsNotAWin(t *testing.T) {
	cells := testCard()
	// Four cells of every line at most: draw the whole top row minus one.
	drawn := DrawnSet([]string{"01", "02", "03", "04"})
	assert.False(t, HasWinningLine(cells, drawn))
}

func TestHasWinningLineFreeCellCounts(t *testing.T) {
	cells := testCard()
	// Middle row is 11,12,FREE,13,14: four drawn numbers plus FREE wins.
	drawn := DrawnSet([]string{"11", "12", "13", "14"})
	assert.True(t, HasWinningLine(cells, drawn))

	// Diagonal through the center: 01,07,FREE,18,24 in the test layout.
	drawn = DrawnSet([]string{"01", "07", "18", "24"})
	assert.True(t, HasWinningLine(cells, drawn))
}

func TestHasWinningLineColumn(t *testing.T) {
	cells := testCard()
	// First column is 01,06,11,15,20 in the test layout.
	drawn := DrawnSet([]string{"01", "06", "11", "15", "20"})
	assert.True(t, HasWinningLine(cells, drawn))
}

func TestHasWinningLineBlankCellsNeverMatch(t *testing.T) {
	cells := testCard()
	cells[0] = "" // blanked during setup
	drawn := DrawnSet([]string{"01", "02", "03", "04", "05"})
	assert.False(t, HasWinningLine(cells, drawn), "a blanked cell cannot complete its row")

	// Other lines through the blank are unaffected elsewhere.
	drawn = DrawnSet([]string{"06", "07", "08", "09", "10"})
	assert.True(t, HasWinningLine(cells, drawn))
}

func TestHasWinningLineRejectsMalformedCard(t *testing.T) {
	assert.False(t, HasWinningLine(nil, DrawnSet([]string{"01"})))
	assert.False(t, HasWinningLine(make([]string, 10), map[string]bool{}))
}

func TestWinningLinesCoverage(t *testing.T) {
	require.Len(t, winningLines, 12)
	counts := make(map[int]int)
	for _, line := range winningLines {
		for _, idx := range line {
			counts[idx]++
		}
	}
	// Center carries a row, a column and both diagonals.
	assert.Equal(t, 4, counts[FreeIndex])
	// Corners carry a row, a column and one diagonal.
	for _, corner := range []int{0, 4, 20, 24} {
		assert.Equal(t, 3, counts[corner])
	}
}
