package device

import (
	"regexp"
	"strconv"
	"strings"
)

var versionPattern = regexp.MustCompile(`^V?(\d+(?:\.\d+)*)`)

// CompareFirmware compares firmware versions such as "V2.70" or
// "V4.70(ABMH.6)" numerically, returning -1, 0 or 1. Only the leading
// dotted number counts, missing parts are zero and unparsable versions
// compare as 0.
func CompareFirmware(a, b string) int {
	x, y := versionParts(a), versionParts(b)
	for len(x) < len(y) {
		x = append(x, 0)
	}
	for len(y) < len(x) {
		y = append(y, 0)
	}
	for i := range x {
		switch {
		case x[i] < y[i]:
			return -1
		case x[i] > y[i]:
			return 1
		}
	}
	return 0
}

func versionParts(v string) []int {
	m := versionPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(v)))
	if m == nil {
		return []int{0}
	}
	var parts []int
	for _, p := range strings.Split(m[1], ".") {
		n, err := strconv.Atoi(p)
		if err != nil {
			return []int{0}
		}
		parts = append(parts, n)
	}
	return parts
}
