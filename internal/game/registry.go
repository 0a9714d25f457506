package game

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// StatusKey is the catalog key for the remaining-pieces status line.
const StatusKey = "Place %d more Queens on the board to win"

// Registry counts the pieces placed toward an N-piece solution.
type Registry struct {
	size    int
	counter int
}

func NewRegistry(size int) *Registry {
	return &Registry{size: size}
}

// Adjust adds delta to the counter: -1 on pickup, +1 on placement.
func (r *Registry) Adjust(delta int) { r.counter += delta }

// Reset zeroes the counter.
func (r *Registry) Reset() { r.counter = 0 }

func (r *Registry) Counter() int   { return r.counter }
func (r *Registry) Size() int      { return r.size }
func (r *Registry) Remaining() int { return r.size - r.counter }

// Complete reports whether the counter reached the board size.
func (r *Registry) Complete() bool { return r.counter >= r.size }

// Status formats the remaining count with p's locale.
func (r *Registry) Status(p *message.Printer) string {
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	return p.Sprintf(StatusKey, r.Remaining())
}

// SupportedLanguages lists the locales with a registered status message.
var SupportedLanguages = []language.Tag{language.English, language.Spanish}

func init() {
	mustSet(language.English, plural.Selectf(1, "%d",
		"=1", "Place %[1]d more Queen on the board to win",
		"other", "Place %[1]d more Queens on the board to win",
	))
	mustSet(language.Spanish, plural.Selectf(1, "%d",
		"=1", "Coloca %[1]d reina más en el tablero para ganar",
		"other", "Coloca %[1]d reinas más en el tablero para ganar",
	))
}

func mustSet(tag language.Tag, msg catalog.Message) {
	if err := message.Set(tag, StatusKey, msg); err != nil {
		panic(err)
	}
}
