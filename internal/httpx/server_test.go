package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blipjoy/nqueens/internal/game"
)

type statePayload struct {
	Result string `json:"result"`
	Won    bool   `json:"won"`
	Error  string `json:"error"`
	State  struct {
		Size      int                 `json:"size"`
		Placed    int                 `json:"placed"`
		Remaining int                 `json:"remaining"`
		Pieces    []string            `json:"pieces"`
		Attacks   map[string][]string `json:"attacks"`
		Hits      []string            `json:"hits"`
		Status    string              `json:"status"`
	} `json:"state"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	session, err := game.NewSession(game.NewMemoryBoard(), game.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	srv, err := NewServer(session, Options{})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func call(t *testing.T, h http.Handler, method, path, body string, header ...string) (int, statePayload) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var payload statePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode %s %s body %q: %v", method, path, rr.Body.String(), err)
	}
	return rr.Code, payload
}

func place(t *testing.T, h http.Handler, dst string) statePayload {
	t.Helper()
	if code, p := call(t, h, http.MethodPost, "/api/drag/start", `{"src":"spare"}`); code != http.StatusOK {
		t.Fatalf("drag start: %d %s", code, p.Error)
	}
	if code, p := call(t, h, http.MethodPost, "/api/drag/move", `{"dst":"`+dst+`","lastPos":"spare","src":"spare"}`); code != http.StatusOK {
		t.Fatalf("drag move: %d %s", code, p.Error)
	}
	code, p := call(t, h, http.MethodPost, "/api/drop", `{"src":"spare","dst":"`+dst+`"}`)
	if code != http.StatusOK {
		t.Fatalf("drop: %d %s", code, p.Error)
	}
	return p
}

func TestHandleDropAcceptsAndRejects(t *testing.T) {
	h := newTestServer(t).routes()

	p := place(t, h, "a1")
	if p.Result != "" || p.State.Placed != 1 {
		t.Fatalf("expected a1 accepted, got %+v", p)
	}
	if got := p.State.Attacks["e5"]; len(got) != 1 || got[0] != "a1" {
		t.Fatalf("expected e5 attacked by a1, got %v", got)
	}

	p = place(t, h, "C3")
	if p.Result != "snapback" {
		t.Fatalf("expected snapback on c3, got %q", p.Result)
	}
	if p.State.Placed != 1 || len(p.State.Hits) != 0 {
		t.Fatalf("unexpected state after snapback: %+v", p.State)
	}
}

func TestHandleDropWinAdvancesSize(t *testing.T) {
	h := newTestServer(t).routes()
	var p statePayload
	for _, sq := range []string{"a1", "b3", "c5", "d2", "e4"} {
		p = place(t, h, sq)
	}
	if !p.Won || p.State.Size != 6 || p.State.Placed != 0 {
		t.Fatalf("expected win and 6x6 board, got won=%v state=%+v", p.Won, p.State)
	}
}

func TestBadLabelFailsOnlyThatRequest(t *testing.T) {
	h := newTestServer(t).routes()
	place(t, h, "a1")

	code, p := call(t, h, http.MethodPost, "/api/drop", `{"src":"spare","dst":"9z"}`)
	if code != http.StatusBadRequest || p.Error == "" {
		t.Fatalf("expected 400 with error, got %d %+v", code, p)
	}
	code, _ = call(t, h, http.MethodPost, "/api/drag/move", `{"dst":"h8","lastPos":"spare","src":"spare"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for square off a 5x5 board, got %d", code)
	}

	code, p = call(t, h, http.MethodGet, "/api/state", "")
	if code != http.StatusOK || p.State.Placed != 1 {
		t.Fatalf("state damaged by bad requests: %d %+v", code, p.State)
	}
}

func TestPaddedAndEmptySources(t *testing.T) {
	h := newTestServer(t).routes()
	place(t, h, "a1")

	if code, p := call(t, h, http.MethodPost, "/api/drop", `{"src":"spare","dst":"A01"}`); code != http.StatusBadRequest || p.Error == "" {
		t.Fatalf("expected 400 for a01, got %d %+v", code, p)
	}
	if code, _ := call(t, h, http.MethodPost, "/api/drag/start", `{"src":"e5"}`); code != http.StatusConflict {
		t.Fatalf("expected 409 lifting from empty e5, got %d", code)
	}
	if p := place(t, h, "a3"); p.Result != "snapback" || p.State.Placed != 1 {
		t.Fatalf("expected a3 rejected in a1's column, got %+v", p)
	}
}

func TestInvalidJSON(t *testing.T) {
	h := newTestServer(t).routes()
	code, p := call(t, h, http.MethodPost, "/api/drop", `{"src":`)
	if code != http.StatusBadRequest || p.Error != "invalid json" {
		t.Fatalf("expected invalid json, got %d %+v", code, p)
	}
}

func TestTransitions(t *testing.T) {
	h := newTestServer(t).routes()

	if code, p := call(t, h, http.MethodPost, "/api/next", ""); code != http.StatusOK || p.State.Size != 6 {
		t.Fatalf("next: %d %+v", code, p.State)
	}
	place(t, h, "a1")
	if code, p := call(t, h, http.MethodPost, "/api/clear", ""); code != http.StatusOK || p.State.Size != 6 || p.State.Placed != 0 || len(p.State.Pieces) != 0 {
		t.Fatalf("clear: %d %+v", code, p.State)
	}
	if code, p := call(t, h, http.MethodPost, "/api/restart", ""); code != http.StatusOK || p.State.Size != 5 {
		t.Fatalf("restart: %d %+v", code, p.State)
	}
	if code, p := call(t, h, http.MethodPost, "/api/start", ""); code != http.StatusOK || p.State.Size != 5 {
		t.Fatalf("start: %d %+v", code, p.State)
	}
	if code, _ := call(t, h, http.MethodGet, "/api/next", ""); code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /api/next, got %d", code)
	}
}

func TestStatusIsLocalized(t *testing.T) {
	h := newTestServer(t).routes()
	place(t, h, "a1")

	tests := []struct {
		name   string
		path   string
		header []string
		want   string
	}{
		{"default", "/api/state", nil, "Place 4 more Queens on the board to win"},
		{"query", "/api/state?lang=es", nil, "Coloca 4 reinas más en el tablero para ganar"},
		{"accept language", "/api/state", []string{"Accept-Language", "es-MX,es;q=0.9"}, "Coloca 4 reinas más en el tablero para ganar"},
		{"unsupported", "/api/state?lang=fr", nil, "Place 4 more Queens on the board to win"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := call(t, h, http.MethodGet, tt.path, "", tt.header...)
			if p.State.Status != tt.want {
				t.Fatalf("status = %q, want %q", p.State.Status, tt.want)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestServer(t).routes()
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Content-Security-Policy"); got != apiCSP {
		t.Fatalf("unexpected CSP %q", got)
	}
	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestNewServerRejectsBadLocale(t *testing.T) {
	session, err := game.NewSession(game.NewMemoryBoard(), game.Options{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := NewServer(session, Options{Locale: "not a tag!"}); err == nil {
		t.Fatalf("expected locale parse error")
	}
	srv, err := NewServer(session, Options{Locale: "es"})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	_, p := call(t, srv.routes(), http.MethodGet, "/api/state", "")
	if !strings.HasPrefix(p.State.Status, "Coloca") {
		t.Fatalf("expected spanish fallback, got %q", p.State.Status)
	}
}
