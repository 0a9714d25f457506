package game

import (
	"fmt"
	"sort"

	"github.com/blipjoy/nqueens/internal/shared"
)

// Occupancy answers whether a piece currently sits on a square.
type Occupancy interface {
	IsOccupied(label string) bool
}

// AttackMap records, for every square, the set of pieces that can reach it
// along a row, column or diagonal. A square is present only while at least
// one attacker covers it.
type AttackMap struct {
	size      int
	occupancy Occupancy
	attackers map[string]map[string]struct{}
	hits      map[string]bool
	marked    map[string][]string // attacker -> squares it added itself to
}

func NewAttackMap(size int, occupancy Occupancy) *AttackMap {
	m := &AttackMap{occupancy: occupancy}
	m.Reset(size)
	return m
}

// Reset drops every attacker and hit and resizes the grid.
func (m *AttackMap) Reset(size int) {
	m.size = size
	m.attackers = make(map[string]map[string]struct{})
	m.hits = make(map[string]bool)
	m.marked = make(map[string][]string)
}

// SetAttacks marks every square reachable from attacker. A reached square
// that holds a piece is flagged as hit unless it is source, the attacker's
// physical position while it is being dragged.
func (m *AttackMap) SetAttacks(attacker, source string) error {
	if shared.IsSentinel(attacker) {
		return nil
	}
	origin, err := shared.ParseSquare(attacker)
	if err != nil {
		return fmt.Errorf("set attacks: %w", err)
	}
	if !origin.InBounds(m.size) {
		return fmt.Errorf("set attacks %s on %dx%d: %w", attacker, m.size, m.size, ErrInvalidSquare)
	}

	for _, sq := range shared.Column(origin.Column, m.size) {
		m.mark(attacker, source, sq.Label())
	}
	for _, sq := range shared.Row(origin.Row, m.size) {
		m.mark(attacker, source, sq.Label())
	}
	for _, dir := range shared.Diagonals {
		for _, sq := range shared.Ray(origin, dir, m.size) {
			m.mark(attacker, source, sq.Label())
		}
	}
	return nil
}

func (m *AttackMap) mark(attacker, source, label string) {
	set, ok := m.attackers[label]
	if !ok {
		set = make(map[string]struct{})
		m.attackers[label] = set
	}
	if _, seen := set[attacker]; !seen {
		set[attacker] = struct{}{}
		m.marked[attacker] = append(m.marked[attacker], label)
	}
	if label != source && m.occupancy != nil && m.occupancy.IsOccupied(label) {
		m.hits[label] = true
	}
}

// ClearAttacks removes attacker from every square it covers. Squares left
// without attackers disappear from the map, and the hit flag is dropped on
// every square the attacker touched regardless of who else covers it.
func (m *AttackMap) ClearAttacks(attacker string) {
	if shared.IsSentinel(attacker) {
		return
	}
	for _, label := range m.marked[attacker] {
		if set, ok := m.attackers[label]; ok {
			delete(set, attacker)
			if len(set) == 0 {
				delete(m.attackers, label)
			}
		}
		delete(m.hits, label)
	}
	delete(m.marked, attacker)
}

func (m *AttackMap) Size() int { return m.size }

// Attackers lists the pieces covering label in sorted order.
func (m *AttackMap) Attackers(label string) []string {
	set := m.attackers[label]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func (m *AttackMap) IsAttacked(label string) bool { return len(m.attackers[label]) > 0 }

func (m *AttackMap) IsHit(label string) bool { return m.hits[label] }

// AnyHit reports whether any square on the board carries the hit flag.
func (m *AttackMap) AnyHit() bool { return len(m.hits) > 0 }

func (m *AttackMap) HitSquares() []string {
	out := make([]string, 0, len(m.hits))
	for label := range m.hits {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Snapshot copies the map into plain slices for serialization.
func (m *AttackMap) Snapshot() map[string][]string {
	out := make(map[string][]string, len(m.attackers))
	for label := range m.attackers {
		out[label] = m.Attackers(label)
	}
	return out
}
