package shared

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	alphabet = 26
	// Thirteen letters is the longest column that still fits in an int.
	maxColumnDigits = 13
)

var labelPattern = regexp.MustCompile(`^([a-z]+)([0-9]+)$`)

// EncodeColumn renders a zero-based column in bijective base 26, so that
// 0 is "a", 25 is "z", 26 is "aa" and 702 is "aaa".
func EncodeColumn(column int) string {
	if column < 0 {
		panic(fmt.Sprintf("shared: negative column %d", column))
	}
	var buf [16]byte
	i := len(buf)
	for n := column + 1; n > 0; {
		n--
		i--
		buf[i] = byte('a' + n%alphabet)
		n /= alphabet
	}
	return string(buf[i:])
}

// DecodeColumn is the inverse of EncodeColumn.
func DecodeColumn(s string) (int, error) {
	if s == "" || len(s) > maxColumnDigits {
		return 0, fmt.Errorf("decode column %q: %w", s, ErrFormat)
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'z' {
			return 0, fmt.Errorf("decode column %q: %w", s, ErrFormat)
		}
		n = n*alphabet + int(c-'a') + 1
	}
	return n - 1, nil
}

// ParseSquare splits a label such as "c3" or "aa12" into its square. Only
// labels that Square.Label would produce are accepted, so "a01" is rejected.
func ParseSquare(label string) (Square, error) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil || m[2][0] == '0' {
		return Square{}, fmt.Errorf("parse square %q: %w", label, ErrFormat)
	}
	column, err := DecodeColumn(m[1])
	if err != nil {
		return Square{}, err
	}
	row, err := strconv.Atoi(m[2])
	if err != nil || row < 1 {
		return Square{}, fmt.Errorf("parse square %q: %w", label, ErrFormat)
	}
	return Square{Column: column, Row: row - 1}, nil
}
