package domain

import "strings"

// CompareUnitCodes orders codes so that digit runs compare numerically,
// e.g. "A-2" < "A-10". Ties fall back to plain string order.
func CompareUnitCodes(a, b string) int {
	x, y := strings.ToUpper(a), strings.ToUpper(b)
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		if isDigit(x[i]) && isDigit(y[j]) {
			si := i
			for i < len(x) && isDigit(x[i]) {
				i++
			}
			sj := j
			for j < len(y) && isDigit(y[j]) {
				j++
			}
			na := strings.TrimLeft(x[si:i], "0")
			nb := strings.TrimLeft(y[sj:j], "0")
			if len(na) != len(nb) {
				if len(na) < len(nb) {
					return -1
				}
				return 1
			}
			if c := strings.Compare(na, nb); c != 0 {
				return c
			}
			continue
		}
		if x[i] != y[j] {
			if x[i] < y[j] {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(x)-i < len(y)-j:
		return -1
	case len(x)-i > len(y)-j:
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
