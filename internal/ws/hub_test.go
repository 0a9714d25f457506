package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/websocket"
)

type fakeApplier struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeApplier) Apply(_ context.Context, ev Event) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch ev.Type {
	case "boom":
		return Message{}, errors.New("unknown event type \"boom\"")
	case "drop":
		f.events = append(f.events, ev)
		return Message{Type: "drop", Result: "snapback"}, nil
	}
	f.events = append(f.events, ev)
	return Message{}, nil
}

func (f *fakeApplier) State(lang string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]any{"lang": lang, "applied": len(f.events)}
}

type frame struct {
	Type   string         `json:"type"`
	Client string         `json:"client"`
	Result string         `json:"result"`
	Error  string         `json:"error"`
	State  map[string]any `json:"state"`
}

func dial(t *testing.T, h *Hub, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	return conn
}

func receive(t *testing.T, conn *websocket.Conn, want string) frame {
	t.Helper()
	var f frame
	if err := websocket.JSON.Receive(conn, &f); err != nil {
		t.Fatalf("receive %s: %v", want, err)
	}
	if f.Type != want {
		t.Fatalf("expected %s frame, got %+v", want, f)
	}
	return f
}

func startHub(t *testing.T) (*Hub, *fakeApplier) {
	t.Helper()
	app := &fakeApplier{}
	h := NewHub(app)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h, app
}

func TestHubGreetsWithState(t *testing.T) {
	h, _ := startHub(t)
	conn := dial(t, h, "?lang=es")

	hello := receive(t, conn, "hello")
	if hello.Client == "" {
		t.Fatalf("expected a client id")
	}
	st := receive(t, conn, "state")
	if st.State["lang"] != "es" {
		t.Fatalf("expected client language es, got %v", st.State["lang"])
	}
}

func TestHubRepliesThenBroadcasts(t *testing.T) {
	h, app := startHub(t)
	a := dial(t, h, "")
	b := dial(t, h, "")
	for _, c := range []*websocket.Conn{a, b} {
		receive(t, c, "hello")
		receive(t, c, "state")
	}

	if err := websocket.JSON.Send(a, Event{Type: "drop", Src: "spare", Dst: "c3"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := receive(t, a, "drop"); got.Result != "snapback" {
		t.Fatalf("expected snapback reply, got %+v", got)
	}
	if got := receive(t, a, "state"); got.State["applied"] != float64(1) {
		t.Fatalf("sender state not refreshed: %+v", got.State)
	}
	if got := receive(t, b, "state"); got.State["applied"] != float64(1) {
		t.Fatalf("peer state not refreshed: %+v", got.State)
	}

	app.mu.Lock()
	ev := app.events[0]
	app.mu.Unlock()
	if ev.Src != "spare" || ev.Dst != "c3" {
		t.Fatalf("event fields lost: %+v", ev)
	}
}

func TestHubReportsErrorsToSenderOnly(t *testing.T) {
	h, _ := startHub(t)
	conn := dial(t, h, "")
	receive(t, conn, "hello")
	receive(t, conn, "state")

	if err := websocket.JSON.Send(conn, Event{Type: "boom"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := receive(t, conn, "error"); !strings.Contains(got.Error, "boom") {
		t.Fatalf("unexpected error frame %+v", got)
	}

	// The connection stays usable after a failed event.
	if err := websocket.JSON.Send(conn, Event{Type: "dragStart", Src: "spare"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	receive(t, conn, "state")
}

func TestNotifyBroadcastsState(t *testing.T) {
	h, _ := startHub(t)
	conn := dial(t, h, "")
	receive(t, conn, "hello")
	receive(t, conn, "state")

	h.Notify()
	receive(t, conn, "state")
}
