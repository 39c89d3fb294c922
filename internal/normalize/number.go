package normalize

import (
	"strconv"
	"strings"
)

// cellNoise is stripped from numeric cells: interchange arrows, thousands
// separators and percent signs.
var cellNoise = strings.NewReplacer("↑", "", "↓", "", ",", "", "%", "")

func cleanNumber(cell string) string {
	return collapse(cellNoise.Replace(cell))
}

// Int parses a numeric statistics cell. Empty or non-numeric cells are 0.
func Int(cell string) int {
	n, err := strconv.Atoi(cleanNumber(cell))
	if err != nil {
		return int(Float(cell))
	}
	return n
}

// Float parses a numeric statistics cell. Empty or non-numeric cells are 0.
func Float(cell string) float64 {
	f, err := strconv.ParseFloat(cleanNumber(cell), 64)
	if err != nil {
		return 0
	}
	return f
}
