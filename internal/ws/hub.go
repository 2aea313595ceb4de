package ws

import (
	"encoding/json"
	"log"

	"github.com/Ftffxu/ephemeral-chatty/internal/chat"
	"github.com/Ftffxu/ephemeral-chatty/internal/models"
)

// Inbound is a message received from a client. The sender is taken from the
// authenticated connection, never from the payload.
type Inbound struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"-"`
	Content   string `json:"content"`
}

// Outbound is what participants receive: the message already decrypted for
// the receiving user.
type Outbound struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	Username  string         `json:"username,omitempty"`
	Message   models.Message `json:"message,omitempty"`
}

// UserDirectory resolves authenticated user ids to accounts.
type UserDirectory interface {
	UserByID(id string) (models.User, error)
}

type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound messages from the clients.
	broadcast chan Inbound

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Out-of-band notifications addressed to a single user.
	notify chan notification

	chats *chat.Store
	users UserDirectory
}

type notification struct {
	userID  string
	payload []byte
}

func NewHub(chats *chat.Store, users UserDirectory) *Hub {
	return &Hub{
		broadcast:  make(chan Inbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan notification, 8),
		clients:    make(map[*Client]bool),
		chats:      chats,
		users:      users,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case n := <-h.notify:
			for client := range h.clients {
				if client.userID != n.userID {
					continue
				}
				select {
				case client.send <- n.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		case inbound := <-h.broadcast:
			sender, err := h.users.UserByID(inbound.UserID)
			if err != nil {
				log.Printf("Error resolving sender %s: %v", inbound.UserID, err)
				continue
			}

			stored, err := h.chats.SendMessage(inbound.SessionID, sender, inbound.Content)
			if err != nil {
				log.Printf("Error saving message: %v", err)
				continue
			}

			// Deliver to connected participants, each copy decrypted for
			// its reader.
			for client := range h.clients {
				if !h.chats.IsParticipant(inbound.SessionID, client.userID) {
					continue
				}
				readable, err := h.chats.DecryptMessageFor(inbound.SessionID, client.userID, stored)
				if err != nil {
					log.Printf("Error decrypting for %s: %v", client.userID, err)
					continue
				}

				msgBytes, _ := json.Marshal(Outbound{
					Type:      "message",
					SessionID: inbound.SessionID,
					Username:  sender.Username,
					Message:   readable,
				})

				select {
				case client.send <- msgBytes:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// SendNotification pushes an out-of-band event (e.g. a new session) to every
// connection a user holds. Safe to call from handler goroutines; delivery
// happens on the hub loop.
func (h *Hub) SendNotification(userID string, message interface{}) {
	msgBytes, _ := json.Marshal(message)
	h.notify <- notification{userID: userID, payload: msgBytes}
}
