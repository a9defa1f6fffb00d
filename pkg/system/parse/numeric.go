package parse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToInt64 converts a raw token to an int64. The cgroup v2 convention of
// reporting the literal "max" for an unbounded limit maps to MaxInt64.
func ToInt64(token string) (int64, error) {
	if strings.EqualFold(token, "max") {
		return math.MaxInt64, nil
	}

	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: contents not an integer: %q", ErrFormat, token)
	}
	return v, nil
}

// ToFloat64 converts a raw token to a float64, mapping "max" to
// MaxFloat64. NaN and Inf spellings are accepted.
func ToFloat64(token string) (float64, error) {
	if strings.EqualFold(token, "max") {
		return math.MaxFloat64, nil
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: contents not a number: %q", ErrFormat, token)
	}
	return v, nil
}
