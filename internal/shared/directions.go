package shared

// Ray walks from one step off from toward d until it leaves a size×size grid.
func Ray(from Square, d Direction, size int) []Square {
	var squares []Square
	for sq := from.Step(d); sq.InBounds(size); sq = sq.Step(d) {
		squares = append(squares, sq)
	}
	return squares
}

// Row returns every square of the given row, columns 0..size-1.
func Row(row, size int) []Square {
	squares := make([]Square, 0, size)
	for column := 0; column < size; column++ {
		squares = append(squares, Square{Column: column, Row: row})
	}
	return squares
}

// Column returns every square of the given column, rows 0..size-1.
func Column(column, size int) []Square {
	squares := make([]Square, 0, size)
	for row := 0; row < size; row++ {
		squares = append(squares, Square{Column: column, Row: row})
	}
	return squares
}

// Aligned reports whether two squares share a row, column or diagonal.
func Aligned(a, b Square) bool {
	dc := abs(a.Column - b.Column)
	dr := abs(a.Row - b.Row)
	return dc == 0 || dr == 0 || dc == dr
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
