// Package ws streams board view events and session state over WebSockets.
package ws

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/websocket"
)

const sendBuffer = 16

// Event is an inbound frame from a board view.
type Event struct {
	Type    string `json:"type"`
	Src     string `json:"src,omitempty"`
	Dst     string `json:"dst,omitempty"`
	LastPos string `json:"lastPos,omitempty"`
}

// Message is an outbound frame.
type Message struct {
	Type   string `json:"type"`
	Client string `json:"client,omitempty"`
	Result string `json:"result,omitempty"`
	Won    bool   `json:"won,omitempty"`
	Error  string `json:"error,omitempty"`
	State  any    `json:"state,omitempty"`
}

// Applier executes events against the session. Apply returns the reply for
// the sending client; State renders the current session for one locale.
type Applier interface {
	Apply(ctx context.Context, ev Event) (Message, error)
	State(lang string) any
}

type inbound struct {
	client *Client
	event  Event
}

// Hub owns the connected clients. All registration and event handling runs
// on the Run goroutine, so events are applied one at a time in arrival order.
type Hub struct {
	applier    Applier
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	recv       chan inbound
	notify     chan struct{}
	done       chan struct{}
}

func NewHub(applier Applier) *Hub {
	return &Hub{
		applier:    applier,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		recv:       make(chan inbound),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Handler returns the http.Handler that upgrades connections.
func (h *Hub) Handler() websocket.Handler {
	return websocket.Handler(h.OnConnected)
}

func (h *Hub) OnConnected(conn *websocket.Conn) {
	lang := ""
	if req := conn.Request(); req != nil {
		lang = req.URL.Query().Get("lang")
	}
	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan Message, sendBuffer),
		id:   uuid.NewString(),
		lang: lang,
	}
	log.Printf("ws client %s connected", c.id)

	go c.writerThread()

	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
		return
	}
	c.readerThread()
}

// Notify asks the hub to push fresh state to every client. It never blocks;
// pending notifications coalesce.
func (h *Hub) Notify() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Run processes registrations and events until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	tracer := otel.Tracer("github.com/blipjoy/nqueens/internal/ws")
	defer func() {
		close(h.done)
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
	}()

	log.Printf("ws hub running")
	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			log.Printf("ws client %s registered, count %d", c.id, len(h.clients))
			h.deliver(c, Message{Type: "hello", Client: c.id})
			h.deliver(c, h.stateFor(c))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				log.Printf("ws client %s unregistered, count %d", c.id, len(h.clients))
			}

		case <-h.notify:
			h.broadcastState()

		case in := <-h.recv:
			spanCtx, span := tracer.Start(ctx, "ws."+in.event.Type)
			span.SetAttributes(
				attribute.String("ws.client", in.client.id),
				attribute.String("nqueens.src", in.event.Src),
				attribute.String("nqueens.dst", in.event.Dst),
			)
			reply, err := h.applier.Apply(spanCtx, in.event)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				h.deliver(in.client, Message{Type: "error", Error: err.Error()})
				span.End()
				continue
			}
			span.End()
			if reply.Type != "" {
				h.deliver(in.client, reply)
			}
			h.broadcastState()
		}
	}
}

func (h *Hub) broadcastState() {
	for c := range h.clients {
		h.deliver(c, h.stateFor(c))
	}
}

func (h *Hub) stateFor(c *Client) Message {
	return Message{Type: "state", State: h.applier.State(c.lang)}
}

// deliver queues msg for c, dropping clients that stopped reading.
func (h *Hub) deliver(c *Client, msg Message) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		log.Printf("ws client %s is not keeping up, dropping", c.id)
		delete(h.clients, c)
		close(c.send)
	}
}

// Client is one connected board view.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
	id   string
	lang string
}

func (c *Client) readerThread() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		var ev Event
		err := websocket.JSON.Receive(c.conn, &ev)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Printf("ws client %s receive: %v", c.id, err)
			return
		}
		select {
		case c.hub.recv <- inbound{client: c, event: ev}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *Client) writerThread() {
	for msg := range c.send {
		if err := websocket.JSON.Send(c.conn, msg); err != nil {
			log.Printf("ws client %s send: %v", c.id, err)
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}
