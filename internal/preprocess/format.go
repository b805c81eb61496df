package preprocess

import (
	"math"
	"strconv"
)

var units = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with base-1024 units and two decimals.
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	f := float64(n)
	i := int(math.Floor(math.Log(f) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	if i == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(f/math.Pow(1024, float64(i)), 'f', 2, 64) + " " + units[i]
}
