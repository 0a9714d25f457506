package httpx

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/message"

	"github.com/blipjoy/nqueens/internal/ws"
)

// Apply executes a WebSocket event under the same lock as the HTTP API.
func (s *Server) Apply(ctx context.Context, ev ws.Event) (ws.Message, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("nqueens.event", ev.Type))

	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	src, dst, lastPos := normalizeLabel(ev.Src), normalizeLabel(ev.Dst), normalizeLabel(ev.LastPos)
	switch ev.Type {
	case "dragStart":
		return ws.Message{}, s.session.OnDragStart(src)
	case "dragMove":
		return ws.Message{}, s.session.OnDragMove(dst, lastPos, src)
	case "drop":
		res, err := s.session.OnDrop(src, dst)
		if err != nil {
			return ws.Message{}, err
		}
		return ws.Message{Type: "drop", Result: res.Wire(), Won: res.Won}, nil
	case "start":
		s.apply(actionStart)
	case "restart":
		s.apply(actionRestart)
	case "next":
		s.apply(actionNext)
	case "clear":
		s.apply(actionClear)
	default:
		return ws.Message{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return ws.Message{}, nil
}

// State renders the session for a WebSocket client's language.
func (s *Server) State(lang string) any {
	p := message.NewPrinter(s.resolveTag(lang, ""))
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.session.StateFor(p)
}
