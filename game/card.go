package game

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

const (
	CellCount = 25
	FreeIndex = 12 // center of the 5x5 grid
	FreeCell  = "FREE"
	PoolSize  = 99 // numbers 01..99
)

// FormatNumber renders a pool number as the two-digit wire string ("01".."99").
func FormatNumber(n int) string {
	return fmt.Sprintf("%02d", n)
}

// parseCell reports whether s is a well-formed in-range number cell.
func parseCell(s string) bool {
	if len(s) != 2 {
		return false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return n >= 1 && n <= PoolSize
}

// GenerateRandomCard returns 25 cells: FREE at the center and 24 distinct
// numbers drawn without replacement from 01..99.
func GenerateRandomCard() []string {
	nums := make([]int, PoolSize)
	for i := range nums {
		nums[i] = i + 1
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(nums), func(i, j int) { nums[i], nums[j] = nums[j], nums[i] })

	cells := make([]string, CellCount)
	next := 0
	for i := range cells {
		if i == FreeIndex {
			cells[i] = FreeCell
			continue
		}
		cells[i] = FormatNumber(nums[next])
		next++
	}
	return cells
}

// NormalizeCard applies the finalize fill policy: the cell count must be 25,
// the center is forced to FREE, and any cell that is malformed, out of range,
// or a duplicate of an earlier number cell is blanked to "". Everything else
// is kept. Blank cells never satisfy a line.
func NormalizeCard(cells []string) ([]string, error) {
	if len(cells) != CellCount {
		return nil, ErrInvalidCard
	}
	out := make([]string, CellCount)
	seen := make(map[string]bool, CellCount)
	for i, c := range cells {
		if i == FreeIndex {
			out[i] = FreeCell
			continue
		}
		if !parseCell(c) || seen[c] {
			out[i] = ""
			continue
		}
		seen[c] = true
		out[i] = c
	}
	return out, nil
}

// ValidateCard is the strict check: 25 cells, FREE exactly at the center,
// every other cell a distinct number in 01..99 or intentionally blank.
func ValidateCard(cells []string) error {
	if len(cells) != CellCount {
		return ErrInvalidCard
	}
	seen := make(map[string]bool, CellCount)
	for i, c := range cells {
		if i == FreeIndex {
			if c != FreeCell {
				return ErrInvalidCard
			}
			continue
		}
		if c == "" {
			continue
		}
		if !parseCell(c) || seen[c] {
			return ErrInvalidCard
		}
		seen[c] = true
	}
	return nil
}
