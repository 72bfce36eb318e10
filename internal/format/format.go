package format

import (
	"fmt"
	"math"
	"strings"
)

const barCells = 10

var (
	sizePrefixes  = []string{"", "K", "M", "G", "T"}
	bytesPrefixes = []string{" ", "Ki", "Mi", "Gi", "Ti"}
)

func scale(size int64, prefixes []string) string {
	const power = 1 << 10
	n := 0
	val := float64(size)
	for val > power && n < len(prefixes)-1 {
		val /= power
		n++
	}
	return fmt.Sprintf("%.2f%sB", val, prefixes[n])
}

// Size renders a byte count with short unit labels, e.g. "45.32MB".
// Used for the quality selection buttons. Size(0) is the empty string.
func Size(size int64) string {
	if size <= 0 {
		return ""
	}
	return scale(size, sizePrefixes)
}

// Bytes renders a byte count in binary units, e.g. "45.32MiB".
// Used in progress reports. Bytes(0) is the empty string.
func Bytes(size int64) string {
	if size <= 0 {
		return ""
	}
	return scale(size, bytesPrefixes)
}

// Duration renders a millisecond count as "1d, 2h, 3m, 4s, 5ms",
// omitting zero-valued units. Duration(0) is the empty string.
func Duration(milliseconds int64) string {
	if milliseconds <= 0 {
		return ""
	}
	seconds, ms := milliseconds/1000, milliseconds%1000
	minutes, seconds := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60
	days, hours := hours/24, hours%24

	parts := make([]string, 0, 5)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	if ms > 0 {
		parts = append(parts, fmt.Sprintf("%dms", ms))
	}
	return strings.Join(parts, ", ")
}

// Bar renders a fixed-width ten cell progress bar for a percentage in [0,100].
func Bar(percentage float64) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	filled := int(math.Floor(percentage / 10))
	if filled > barCells {
		filled = barCells
	}
	return fmt.Sprintf("[%s%s]", strings.Repeat("▰", filled), strings.Repeat("▱", barCells-filled))
}
