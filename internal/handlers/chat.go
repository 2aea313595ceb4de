package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ftffxu/ephemeral-chatty/internal/auth"
	"github.com/Ftffxu/ephemeral-chatty/internal/chat"
	"github.com/Ftffxu/ephemeral-chatty/internal/middleware"
	"github.com/Ftffxu/ephemeral-chatty/internal/models"
	"github.com/Ftffxu/ephemeral-chatty/internal/ws"
)

type ChatHandler struct {
	Auth  *auth.Store
	Chats *chat.Store
	Hub   *ws.Hub
}

type createSessionRequest struct {
	RecipientUniqueID string `json:"recipientUniqueId"`
	IsGroup           bool   `json:"isGroup"`
	Name              string `json:"name"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	creator, err := h.Auth.UserByID(middleware.UserID(r))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var recipient *models.User
	if req.RecipientUniqueID != "" {
		found, err := h.Auth.FindUserByUniqueID(req.RecipientUniqueID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		recipient = &found
	}

	session, err := h.Chats.CreateSession(creator, recipient, req.IsGroup, req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.Hub != nil && recipient != nil {
		h.Hub.SendNotification(recipient.ID, ws.Outbound{
			Type:      "new_session",
			SessionID: session.ID,
			Username:  creator.Username,
		})
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

func (h *ChatHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	sessions := h.Chats.GetUserSessions(userID)
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	json.NewEncoder(w).Encode(sessions)
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	userID := middleware.UserID(r)

	session, err := h.Chats.GetSessionByID(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !session.HasParticipant(userID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	json.NewEncoder(w).Encode(session)
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	userID := middleware.UserID(r)

	messages, err := h.Chats.GetDecryptedMessages(sessionID, userID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	json.NewEncoder(w).Encode(messages)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	sender, err := h.Auth.UserByID(middleware.UserID(r))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := h.Chats.SendMessage(sessionID, sender, req.Content)
	if err != nil {
		writeChatError(w, err)
		return
	}

	// Nudge connected participants; they refetch or receive the decrypted
	// copy over their own websocket.
	if h.Hub != nil {
		session, err := h.Chats.GetSessionByID(sessionID)
		if err == nil {
			for _, p := range session.Participants {
				if p.ID == sender.ID {
					continue
				}
				h.Hub.SendNotification(p.ID, ws.Outbound{
					Type:      "new_message",
					SessionID: sessionID,
					Username:  sender.Username,
				})
			}
		}
	}

	// The response echoes the message as the sender sees it.
	readable, err := h.Chats.DecryptMessageFor(sessionID, sender.ID, stored)
	if err != nil {
		readable = stored
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(readable)
}

func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	userID := middleware.UserID(r)

	session, err := h.Chats.GetSessionByID(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !session.HasParticipant(userID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.Chats.EndSession(sessionID); err != nil {
		writeChatError(w, err)
		return
	}

	if h.Hub != nil {
		for _, p := range session.Participants {
			if p.ID == userID {
				continue
			}
			h.Hub.SendNotification(p.ID, ws.Outbound{
				Type:      "session_ended",
				SessionID: sessionID,
			})
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, chat.ErrNotParticipant):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, chat.ErrKeysNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
