package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/blipjoy/nqueens/internal/game"
	"github.com/blipjoy/nqueens/internal/ws"
)

// Server wires the HTTP layer to the puzzle session.
type Server struct {
	sessionMu sync.Mutex
	session   *game.Session
	hub       *ws.Hub
	tracer    trace.Tracer
	matcher   language.Matcher
	fallback  language.Tag
	srvMu     sync.Mutex
	srv       *http.Server
}

const (
	maxJSONBodyBytes int64 = 1 << 20
	apiCSP                 = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"

	// LangParam selects the status language ahead of Accept-Language.
	LangParam = "lang"
)

// Options configures a Server.
type Options struct {
	// Locale is used when a request names no supported language.
	Locale string
}

// NewServer builds a Server over session.
func NewServer(session *game.Session, opts Options) (*Server, error) {
	if session == nil {
		return nil, errors.New("session is required")
	}
	s := &Server{
		session:  session,
		tracer:   otel.Tracer("github.com/blipjoy/nqueens/internal/httpx"),
		matcher:  language.NewMatcher(game.SupportedLanguages),
		fallback: language.English,
	}
	if opts.Locale != "" {
		tag, err := language.Parse(opts.Locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", opts.Locale, err)
		}
		if supported, ok := s.match(tag); ok {
			s.fallback = supported
		}
	}
	s.hub = ws.NewHub(s)
	return s, nil
}

// Listen starts the WebSocket hub and the HTTP server. The hub stops with ctx.
// No read or write timeouts are set because /ws connections are long-lived.
func (s *Server) Listen(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()
	defer func() {
		s.srvMu.Lock()
		s.srv = nil
		s.srvMu.Unlock()
	}()

	log.Printf("HTTP listening on %s", addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close attempts a graceful shutdown of the HTTP server.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// routes configures the ServeMux with the JSON API and the event feed.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", s.withJSON("state", s.handleState))
	mux.HandleFunc("/api/drag/start", s.withJSON("drag.start", s.handleDragStart))
	mux.HandleFunc("/api/drag/move", s.withJSON("drag.move", s.handleDragMove))
	mux.HandleFunc("/api/drop", s.withJSON("drop", s.handleDrop))
	mux.HandleFunc("/api/start", s.withJSON("start", s.transition(actionStart)))
	mux.HandleFunc("/api/restart", s.withJSON("restart", s.transition(actionRestart)))
	mux.HandleFunc("/api/next", s.withJSON("next", s.transition(actionNext)))
	mux.HandleFunc("/api/clear", s.withJSON("clear", s.transition(actionClear)))

	mux.Handle("/ws", s.hub.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ---- JSON helpers ----

func (s *Server) withJSON(name string, h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), "api."+name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.method", r.Method)),
		)
		defer span.End()

		applyAPISecurityHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": msg})
}

func applyAPISecurityHeaders(h http.Header) {
	h.Set("Content-Security-Policy", apiCSP)
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("X-Content-Type-Options", "nosniff")
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// decodeBody reads a JSON body into v, writing the error response itself.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "request too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// statusForError maps session errors onto HTTP codes. Bad labels only fail
// the request that carried them.
func statusForError(err error) int {
	switch {
	case errors.Is(err, game.ErrFormat), errors.Is(err, game.ErrInvalidSquare):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrEmptySquare):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ---- i18n ----

// printerFor picks the status language from ?lang=, then Accept-Language.
func (s *Server) printerFor(r *http.Request) *message.Printer {
	return message.NewPrinter(s.resolveTag(r.URL.Query().Get(LangParam), r.Header.Get("Accept-Language")))
}

func (s *Server) resolveTag(lang, accept string) language.Tag {
	if lang = strings.TrimSpace(lang); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			if supported, ok := s.match(tag); ok {
				return supported
			}
		}
	}
	if accept = strings.TrimSpace(accept); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			if supported, ok := s.match(tags...); ok {
				return supported
			}
		}
	}
	return s.fallback
}

// match returns the catalog tag itself rather than the matcher's annotated
// result so message lookups hit the registered entry.
func (s *Server) match(tags ...language.Tag) (language.Tag, bool) {
	_, idx, conf := s.matcher.Match(tags...)
	if conf == language.No {
		return language.Und, false
	}
	return game.SupportedLanguages[idx], true
}

// ---- API: state ----

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	p := s.printerFor(r)
	s.sessionMu.Lock()
	state := s.session.StateFor(p)
	s.sessionMu.Unlock()
	writeJSON(w, map[string]any{"state": state})
}

// ---- API: drag lifecycle ----

type dragBody struct {
	Src     string `json:"src"`
	Dst     string `json:"dst"`
	LastPos string `json:"lastPos"`
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body dragBody
	if !decodeBody(w, r, &body) {
		return
	}
	s.respond(w, r, func() (map[string]any, error) {
		return nil, s.session.OnDragStart(normalizeLabel(body.Src))
	})
}

func (s *Server) handleDragMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body dragBody
	if !decodeBody(w, r, &body) {
		return
	}
	s.respond(w, r, func() (map[string]any, error) {
		return nil, s.session.OnDragMove(normalizeLabel(body.Dst), normalizeLabel(body.LastPos), normalizeLabel(body.Src))
	})
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body dragBody
	if !decodeBody(w, r, &body) {
		return
	}
	s.respond(w, r, func() (map[string]any, error) {
		res, err := s.session.OnDrop(normalizeLabel(body.Src), normalizeLabel(body.Dst))
		if err != nil {
			return nil, err
		}
		if res.Won {
			log.Printf("solved %dx%d", res.SolvedSize, res.SolvedSize)
		}
		return map[string]any{"result": res.Wire(), "won": res.Won}, nil
	})
}

// ---- API: session transitions ----

type action uint8

const (
	actionStart action = iota
	actionRestart
	actionNext
	actionClear
)

func (s *Server) transition(a action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if r.Body != nil {
			r.Body.Close()
		}
		s.respond(w, r, func() (map[string]any, error) {
			s.apply(a)
			return nil, nil
		})
	}
}

func (s *Server) apply(a action) {
	switch a {
	case actionStart:
		s.session.Start()
	case actionRestart:
		s.session.Restart()
	case actionNext:
		s.session.Next()
	case actionClear:
		s.session.Clear()
	}
}

// respond runs fn under the session lock and writes its fields together with
// the resulting state. Successful mutations are pushed to WebSocket clients.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, fn func() (map[string]any, error)) {
	p := s.printerFor(r)
	s.sessionMu.Lock()
	out, err := fn()
	state := s.session.StateFor(p)
	s.sessionMu.Unlock()

	if err != nil {
		trace.SpanFromContext(r.Context()).RecordError(err)
		writeError(w, statusForError(err), err.Error())
		return
	}
	if s.hub != nil {
		s.hub.Notify()
	}
	if out == nil {
		out = map[string]any{}
	}
	out["state"] = state
	writeJSON(w, out)
}
