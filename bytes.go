package musiclake

import (
	"strconv"
	"strings"
)

// Bytes is a number of bytes. Its String method gives sizes like 1.2G or 4M,
// which is how file sizes show up in logs.
type Bytes uint64

var byteUnits = []string{"B", "K", "M", "G", "T"}

// String picks the largest unit leaving a value of at least 1 and prints the
// value to one decimal place, dropping a trailing ".0".
func (b Bytes) String() string {
	if b == 0 {
		return "0"
	}
	value := float64(b)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	s := strconv.FormatFloat(value, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0") + byteUnits[unit]
}
