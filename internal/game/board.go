package game

import (
	"sort"

	"github.com/blipjoy/nqueens/internal/shared"
)

// BoardView is the rendering collaborator that owns piece positions. The
// session asks it about occupancy and tells it when a drop is accepted; it
// reads highlighting from the AttackMap rather than storing it.
type BoardView interface {
	Occupancy
	Render(size int, theme string)
	Clear()
	Destroy()
	// Move relocates a piece. Either end may be a sentinel: from Spare adds a
	// piece, to Offboard removes one.
	Move(src, dst string)
	Pieces() []string
}

// MemoryBoard is a BoardView that keeps positions in memory for the
// HTTP and WebSocket front ends.
type MemoryBoard struct {
	size     int
	theme    string
	rendered bool
	pieces   map[string]struct{}
}

func NewMemoryBoard() *MemoryBoard {
	return &MemoryBoard{pieces: make(map[string]struct{})}
}

func (b *MemoryBoard) Render(size int, theme string) {
	b.size = size
	b.theme = theme
	b.rendered = true
	b.pieces = make(map[string]struct{})
}

func (b *MemoryBoard) Clear() {
	b.pieces = make(map[string]struct{})
}

func (b *MemoryBoard) Destroy() {
	b.rendered = false
	b.pieces = make(map[string]struct{})
}

func (b *MemoryBoard) IsOccupied(label string) bool {
	if shared.IsSentinel(label) {
		return false
	}
	_, ok := b.pieces[label]
	return ok
}

func (b *MemoryBoard) Move(src, dst string) {
	if !shared.IsSentinel(src) {
		delete(b.pieces, src)
	}
	if !shared.IsSentinel(dst) {
		b.pieces[dst] = struct{}{}
	}
}

func (b *MemoryBoard) Pieces() []string {
	out := make([]string, 0, len(b.pieces))
	for label := range b.pieces {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

func (b *MemoryBoard) Rendered() bool { return b.rendered }
func (b *MemoryBoard) Size() int      { return b.size }
func (b *MemoryBoard) Theme() string  { return b.theme }
