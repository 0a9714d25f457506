// Package game implements the N-Queens attack tracking and placement rules.
package game

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/blipjoy/nqueens/internal/shared"
)

// DefaultSize is the board size a fresh or restarted session begins with.
const DefaultSize = 5

// DefaultTheme is the piece image pattern handed to the board view.
const DefaultTheme = "img/chesspieces/wikipedia/{piece}.png"

type Phase uint8

const (
	PhaseSetup Phase = iota
	PhasePlaying
	PhaseWon
	PhaseRestarted
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhasePlaying:
		return "playing"
	case PhaseWon:
		return "won"
	case PhaseRestarted:
		return "restarted"
	default:
		return "?"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

type DropOutcome uint8

const (
	DropAccepted DropOutcome = iota
	DropRejected
)

// DropResult is what the board view needs to finish a drag: whether to snap
// the piece back and whether the drop solved the puzzle.
type DropResult struct {
	Outcome    DropOutcome
	Won        bool
	SolvedSize int
}

func (r DropResult) Snapback() bool { return r.Outcome == DropRejected }

// Wire returns "snapback" for rejected drops and "" otherwise.
func (r DropResult) Wire() string {
	if r.Snapback() {
		return "snapback"
	}
	return ""
}

// Options configures a new Session.
type Options struct {
	Size  int
	Theme string
	// OnPhase, when set, observes every phase change with the size it
	// applies to.
	OnPhase func(phase Phase, size int)
}

// Session owns the puzzle size and drives the attack map, registry and board
// view through start, restart, next and clear.
type Session struct {
	size     int
	theme    string
	phase    Phase
	board    BoardView
	attacks  *AttackMap
	registry *Registry
	solved   int
	lastNote string
	onPhase  func(Phase, int)
}

// SessionState is a serializable snapshot of the session.
type SessionState struct {
	Size      int                 `json:"size"`
	Placed    int                 `json:"placed"`
	Remaining int                 `json:"remaining"`
	Phase     Phase               `json:"phase"`
	Theme     string              `json:"theme"`
	Pieces    []string            `json:"pieces"`
	Attacks   map[string][]string `json:"attacks"`
	Hits      []string            `json:"hits"`
	Solved    int                 `json:"solved"`
	LastNote  string              `json:"lastNote"`
	Status    string              `json:"status"`
}

// NewSession builds a session over board and starts the first puzzle.
func NewSession(board BoardView, opts Options) (*Session, error) {
	if board == nil {
		return nil, fmt.Errorf("new session: board view is required")
	}
	if opts.Size == 0 {
		opts.Size = DefaultSize
	}
	if opts.Size < 1 {
		return nil, fmt.Errorf("new session with size %d: %w", opts.Size, ErrInvalidSize)
	}
	if opts.Theme == "" {
		opts.Theme = DefaultTheme
	}
	s := &Session{
		size:    opts.Size,
		theme:   opts.Theme,
		phase:   PhaseSetup,
		board:   board,
		onPhase: opts.OnPhase,
	}
	s.attacks = NewAttackMap(s.size, board)
	s.registry = NewRegistry(s.size)
	s.Start()
	return s, nil
}

// Start renders a fresh board at the current size and resets all tracking.
func (s *Session) Start() {
	s.setPhase(PhaseSetup)
	s.board.Destroy()
	s.board.Render(s.size, s.theme)
	s.registry = NewRegistry(s.size)
	s.attacks.Reset(s.size)
	s.setPhase(PhasePlaying)
	s.lastNote = fmt.Sprintf("New %dx%d puzzle", s.size, s.size)
}

// Restart returns to the default size.
func (s *Session) Restart() {
	s.size = DefaultSize
	s.setPhase(PhaseRestarted)
	s.Start()
}

// Next advances to a puzzle one size larger.
func (s *Session) Next() {
	s.size++
	s.Start()
}

// Clear removes every piece and marker without changing the size.
func (s *Session) Clear() {
	s.board.Clear()
	s.attacks.Reset(s.size)
	s.registry.Reset()
	s.lastNote = "Board cleared"
}

// OnDragStart takes a piece off the registry when it is lifted from the grid.
func (s *Session) OnDragStart(src string) error {
	if err := s.checkSource(src); err != nil {
		return fmt.Errorf("drag start: %w", err)
	}
	if !shared.IsSentinel(src) {
		s.registry.Adjust(-1)
	}
	return nil
}

// OnDragMove refreshes highlighting as a piece travels from lastPos to dst.
// The previous position is always cleared before the new one is set.
func (s *Session) OnDragMove(dst, lastPos, src string) error {
	for _, label := range []string{dst, lastPos} {
		if err := s.checkLabel(label); err != nil {
			return fmt.Errorf("drag move: %w", err)
		}
	}
	if err := s.checkSource(src); err != nil {
		return fmt.Errorf("drag move: %w", err)
	}

	s.attacks.ClearAttacks(lastPos)

	// lastPos shares its label with the piece sitting there, so that piece's
	// own attacks were just cleared too.
	if lastPos != src && s.board.IsOccupied(lastPos) {
		if err := s.attacks.SetAttacks(lastPos, lastPos); err != nil {
			return fmt.Errorf("drag move: %w", err)
		}
	}

	if dst == src || !s.board.IsOccupied(dst) {
		if err := s.attacks.SetAttacks(dst, src); err != nil {
			return fmt.Errorf("drag move: %w", err)
		}
	}
	return nil
}

// OnDrop resolves a drop of the piece lifted at src onto dst.
func (s *Session) OnDrop(src, dst string) (DropResult, error) {
	if err := s.checkSource(src); err != nil {
		return DropResult{}, fmt.Errorf("drop: %w", err)
	}
	if err := s.checkLabel(dst); err != nil {
		return DropResult{}, fmt.Errorf("drop: %w", err)
	}

	// Only the board view fills the spare pile.
	if dst == shared.Spare {
		return s.snapBack(src, "spare is not a drop target"), nil
	}

	if s.board.IsOccupied(dst) {
		return s.snapBack(src, fmt.Sprintf("%s is occupied", dst)), nil
	}

	// A drop that arrives without a drag move onto dst is still checked
	// against dst's lines.
	if !shared.IsSentinel(dst) && !s.attackedBy(dst, dst) {
		if err := s.attacks.SetAttacks(dst, src); err != nil {
			return DropResult{}, fmt.Errorf("drop: %w", err)
		}
	}

	if !s.IsValidDrop(dst) {
		s.attacks.ClearAttacks(dst)
		return s.snapBack(src, fmt.Sprintf("%s is under attack", dst)), nil
	}

	if dst == shared.Offboard {
		s.attacks.ClearAttacks(src)
		s.board.Move(src, dst)
		s.lastNote = fmt.Sprintf("Removed %s", src)
		return DropResult{Outcome: DropAccepted}, nil
	}

	s.attacks.ClearAttacks(src)
	s.board.Move(src, dst)
	if err := s.attacks.SetAttacks(dst, dst); err != nil {
		return DropResult{}, fmt.Errorf("drop: %w", err)
	}
	s.registry.Adjust(1)
	s.lastNote = fmt.Sprintf("Placed %s", dst)

	if s.registry.Complete() {
		won := s.size
		s.solved++
		s.setPhase(PhaseWon)
		s.Next()
		s.lastNote = fmt.Sprintf("Solved %dx%d, advancing to %dx%d", won, won, s.size, s.size)
		return DropResult{Outcome: DropAccepted, Won: true, SolvedSize: won}, nil
	}
	return DropResult{Outcome: DropAccepted}, nil
}

// IsValidDrop reports whether a drop may land. Any hit anywhere on the board
// blocks it, not only a hit on dst.
func (s *Session) IsValidDrop(dst string) bool {
	return !s.attacks.AnyHit()
}

func (s *Session) Size() int           { return s.size }
func (s *Session) Phase() Phase        { return s.phase }
func (s *Session) Solved() int         { return s.solved }
func (s *Session) Attacks() *AttackMap { return s.attacks }
func (s *Session) Registry() *Registry { return s.registry }

// Status formats the remaining-pieces line with p's locale.
func (s *Session) Status(p *message.Printer) string { return s.registry.Status(p) }

func (s *Session) setPhase(p Phase) {
	s.phase = p
	if s.onPhase != nil {
		s.onPhase(p, s.size)
	}
}

// State returns a snapshot with the status line in English.
func (s *Session) State() SessionState {
	return s.StateFor(message.NewPrinter(language.English))
}

// StateFor returns a snapshot with the status line formatted by p.
func (s *Session) StateFor(p *message.Printer) SessionState {
	return SessionState{
		Size:      s.size,
		Placed:    s.registry.Counter(),
		Remaining: s.registry.Remaining(),
		Phase:     s.phase,
		Theme:     s.theme,
		Pieces:    s.board.Pieces(),
		Attacks:   s.attacks.Snapshot(),
		Hits:      s.attacks.HitSquares(),
		Solved:    s.solved,
		LastNote:  s.lastNote,
		Status:    s.registry.Status(p),
	}
}

func (s *Session) attackedBy(label, attacker string) bool {
	for _, a := range s.attacks.Attackers(label) {
		if a == attacker {
			return true
		}
	}
	return false
}

// snapBack rejects a drop from src, restoring its registry count and attacks.
func (s *Session) snapBack(src, note string) DropResult {
	if !shared.IsSentinel(src) {
		s.registry.Adjust(1)
		// src parsed in checkSource, so SetAttacks cannot fail here.
		_ = s.attacks.SetAttacks(src, src)
	}
	s.lastNote = note
	return DropResult{Outcome: DropRejected}
}

// checkSource is checkLabel plus the requirement that a grid src holds a piece.
func (s *Session) checkSource(src string) error {
	if err := s.checkLabel(src); err != nil {
		return err
	}
	if !shared.IsSentinel(src) && !s.board.IsOccupied(src) {
		return fmt.Errorf("%s: %w", src, ErrEmptySquare)
	}
	return nil
}

// checkLabel accepts sentinels and labels of squares on the current board.
func (s *Session) checkLabel(label string) error {
	if shared.IsSentinel(label) {
		return nil
	}
	sq, err := shared.ParseSquare(label)
	if err != nil {
		return err
	}
	if !sq.InBounds(s.size) {
		return fmt.Errorf("%s on %dx%d: %w", label, s.size, s.size, ErrInvalidSquare)
	}
	return nil
}
