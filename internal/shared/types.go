package shared

import (
	"errors"
	"strconv"
)

// ErrFormat reports a square label that the codec could not have produced.
var ErrFormat = errors.New("malformed square label")

// Sentinel piece positions used by the board view for pieces that are not on
// the grid. They never take part in attack computation.
const (
	Offboard = "offboard"
	Spare    = "spare"
)

// IsSentinel reports whether label names one of the off-grid positions.
func IsSentinel(label string) bool {
	return label == Offboard || label == Spare
}

// Square is a zero-based (column, row) cell.
type Square struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// Label renders s as a column-letters, one-based-row label such as "c3".
func (s Square) Label() string { return EncodeColumn(s.Column) + strconv.Itoa(s.Row+1) }

func (s Square) String() string { return s.Label() }

// InBounds reports whether s lies on a size×size grid.
func (s Square) InBounds(size int) bool {
	return s.Column >= 0 && s.Row >= 0 && s.Column < size && s.Row < size
}

// Step returns the neighbour of s one square toward d.
func (s Square) Step(d Direction) Square {
	dc, dr := d.Delta()
	return Square{Column: s.Column + dc, Row: s.Row + dr}
}

// Direction is one of the four diagonal rays a queen sweeps beyond its row
// and column.
type Direction uint8

const (
	DirNE Direction = iota
	DirSE
	DirSW
	DirNW
)

// Diagonals lists the four diagonal rays in sweep order.
var Diagonals = [4]Direction{DirNW, DirNE, DirSW, DirSE}

// Delta returns the column and row step for d. North is toward row 0.
func (d Direction) Delta() (dc, dr int) {
	switch d {
	case DirNE:
		return 1, -1
	case DirSE:
		return 1, 1
	case DirSW:
		return -1, 1
	default:
		return -1, -1
	}
}
