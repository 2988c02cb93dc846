package contracts

import (
	"sort"
	"strconv"
	"unicode"
)

// LessStringID orders string identifiers numerically when they embed a
// number, so "string 2" sorts before "string 10". Identifiers without a
// number sort after numbered ones, lexicographically.
func LessStringID(a, b string) bool {
	na, oka := firstNumber(a)
	nb, okb := firstNumber(b)
	switch {
	case oka && okb:
		if na != nb {
			return na < nb
		}
		return a < b
	case oka:
		return true
	case okb:
		return false
	default:
		return a < b
	}
}

// SortStringIDs sorts identifiers in place using LessStringID.
func SortStringIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return LessStringID(ids[i], ids[j]) })
}

func firstNumber(s string) (int, bool) {
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(s[start:i])
			return n, err == nil
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(s[start:])
		return n, err == nil
	}
	return 0, false
}
