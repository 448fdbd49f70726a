// Package cliutil holds small numeric and flag helpers shared by the
// kalimba subcommands.
package cliutil

import (
	"fmt"
	"strconv"
	"strings"
)

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParseWorkers parses a worker count flag: an integer >= 1, or "auto" (0).
func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "":
		return 0, fmt.Errorf("empty worker count (use integer >= 1 or 'auto')")
	case "auto":
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("worker count %q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("worker count %d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}
