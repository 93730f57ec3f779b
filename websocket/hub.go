package websocket

import (
	"context"

	"github.com/anjiri1684/learnhub/logger"
	"github.com/anjiri1684/learnhub/models"
	"github.com/anjiri1684/learnhub/services"
	"github.com/google/uuid"
)

const EventCertificateIssued = "certificate.issued"

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

type Event struct {
	Type        string              `json:"type"`
	Certificate *models.Certificate `json:"certificate"`
	TrackTitle  string              `json:"trackTitle"`
}

type delivery struct {
	userID uuid.UUID
	event  Event
}

// Hub pushes certificate events to a learner's open connections. One learner
// may have several (tabs, devices).
type Hub struct {
	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
	clients    map[uuid.UUID]map[*Client]struct{}
	done       chan struct{}
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 256),
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		done:       make(chan struct{}),
		log:        log.With("component", "Hub"),
	}
}

// Register adds a connection. After the hub has stopped the connection is
// closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		_ = c.Conn.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// CertificateIssued queues the event and never blocks; events are dropped
// when the queue is full.
func (h *Hub) CertificateIssued(_ context.Context, ev services.IssuedEvent) {
	d := delivery{
		userID: ev.Certificate.UserID,
		event: Event{
			Type:        EventCertificateIssued,
			Certificate: ev.Certificate,
			TrackTitle:  ev.Track.Title,
		},
	}
	select {
	case h.deliveries <- d:
	default:
		h.log.Warn("Dropping certificate event, queue full", "certificate_id", ev.Certificate.ID)
	}
}

// Run owns the client table until ctx is cancelled. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for c := range conns {
					_ = c.Conn.Close()
				}
			}
			return
		case c := <-h.register:
			if h.clients[c.UserID] == nil {
				h.clients[c.UserID] = make(map[*Client]struct{})
			}
			h.clients[c.UserID][c] = struct{}{}
			h.log.Debug("Client registered", "user_id", c.UserID)
		case c := <-h.unregister:
			h.remove(c)
		case d := <-h.deliveries:
			for c := range h.clients[d.userID] {
				if err := c.Conn.WriteJSON(d.event); err != nil {
					h.log.Warn("Error sending event to client", "user_id", d.userID, "error", err)
					_ = c.Conn.Close()
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
	}
}
