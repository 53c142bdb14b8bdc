package torrent

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatSize renders a byte count base-1024 with two decimals, e.g. 1536 -> "1.50 KB".
func FormatSize(bytes uint64) string {
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}

var humanSizeRegex = regexp.MustCompile(`(?i)^\s*([\d.,]+)\s*([KMGTP]?I?B)\b`)

// ParseSize converts a human size such as "1.4 GB" or "700 MiB" back into bytes.
func ParseSize(s string) (uint64, bool) {
	m := humanSizeRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || n < 0 {
		return 0, false
	}

	unit := strings.ToUpper(strings.Replace(strings.ToUpper(m[2]), "IB", "B", 1))
	for i, u := range sizeUnits {
		if u == unit {
			return uint64(math.Round(n * math.Pow(1024, float64(i)))), true
		}
	}
	return 0, false
}
