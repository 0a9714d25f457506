package game

import (
	"errors"

	"github.com/blipjoy/nqueens/internal/shared"
)

var (
	ErrInvalidSize   = errors.New("invalid board size")
	ErrInvalidSquare = errors.New("square outside the board")
	ErrEmptySquare   = errors.New("no piece on square")

	// ErrFormat is re-exported so callers need not import shared.
	ErrFormat = shared.ErrFormat
)
