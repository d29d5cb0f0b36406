// Package version owns dotted numeric version parsing and ordering.
//
// Ownership boundary:
// - structured parse of "1.2.3.4" style version text
// - segment-wise ordering with missing segments read as zero
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnparseable = errors.New("version: unparseable")

// Version is an ordered tuple of numeric segments.
type Version []int

// Parse converts text like "2.0.1.0" into an ordered numeric tuple.
func Parse(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnparseable)
	}
	parts := strings.Split(s, ".")
	out := make(Version, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: %q", ErrUnparseable, raw)
		}
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return nil, fmt.Errorf("%w: %q", ErrUnparseable, raw)
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnparseable, raw)
		}
		out = append(out, n)
	}
	return out, nil
}

// Compare orders two versions segment-wise; missing segments compare as zero.
func Compare(a, b Version) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// CompareStrings parses both inputs and orders them; either side failing to
// parse surfaces ErrUnparseable so callers can apply their fallback rule.
func CompareStrings(a, b string) (int, error) {
	av, err := Parse(a)
	if err != nil {
		return 0, err
	}
	bv, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return Compare(av, bv), nil
}

// String renders the tuple back to dotted text.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}
