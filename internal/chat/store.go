// Package chat owns the ephemeral chat sessions and their messages. No
// other component mutates session state; ending a session is the only
// deletion path and it removes everything at once.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ftffxu/ephemeral-chatty/internal/crypto"
	"github.com/Ftffxu/ephemeral-chatty/internal/keystore"
	"github.com/Ftffxu/ephemeral-chatty/internal/models"
)

var (
	ErrSessionNotFound = errors.New("Session not found")
	ErrNotParticipant  = errors.New("User is not a participant in this session")
	ErrKeysNotFound    = errors.New("Encryption keys not found for user")
)

// UndecryptableContent replaces message text that could not be recovered
// for the requesting user. A corrupt message degrades to an unreadable
// bubble instead of failing the whole listing.
const UndecryptableContent = "[Unable to decrypt message]"

// Store holds every live session in memory. Sessions are never persisted:
// ending one (or stopping the process) destroys its messages for good.
type Store struct {
	mu      sync.Mutex
	keys    *keystore.Store
	now     func() time.Time
	latency time.Duration

	sessions []*models.ChatSession
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLatency makes every operation sleep before running, emulating the
// network round-trip the browser original faked with setTimeout.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

func NewStore(keys *keystore.Store, opts ...Option) *Store {
	s := &Store{
		keys: keys,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession opens a session between the creator and an optional
// recipient, generating key pairs for any participant that lacks one. The
// participant list is fixed from here on. Group sessions carry a display
// name but no member list beyond the creator; group membership lives in the
// view layer.
func (s *Store) CreateSession(creator models.User, recipient *models.User, isGroup bool, groupName string) (models.ChatSession, error) {
	s.sleep()

	participants := []models.User{creator.WithoutPassword()}
	if recipient != nil {
		participants = append(participants, recipient.WithoutPassword())
	}

	for _, p := range participants {
		if _, err := s.keys.Ensure(p.ID); err != nil {
			return models.ChatSession{}, fmt.Errorf("generate keys for %s: %w", p.ID, err)
		}
	}

	session := &models.ChatSession{
		ID:           uuid.NewString(),
		Participants: participants,
		Messages:     []models.Message{},
		CreatedAt:    s.now().UnixMilli(),
		IsGroup:      isGroup,
	}
	if isGroup {
		session.Name = groupName
	}

	s.mu.Lock()
	s.sessions = append(s.sessions, session)
	s.mu.Unlock()

	return cloneSession(session), nil
}

// GetSessionByID returns a copy of the session.
func (s *Store) GetSessionByID(sessionID string) (models.ChatSession, error) {
	s.sleep()

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.find(sessionID)
	if session == nil {
		return models.ChatSession{}, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// GetUserSessions returns copies of every session the user participates in.
func (s *Store) GetUserSessions(userID string) []models.ChatSession {
	s.sleep()

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ChatSession
	for _, session := range s.sessions {
		if session.HasParticipant(userID) {
			out = append(out, cloneSession(session))
		}
	}
	return out
}

// SendMessage appends a message to the session. The stored content is a
// JSON envelope holding the sender's plaintext plus a ciphertext per other
// participant, each encrypted under that participant's public key.
func (s *Store) SendMessage(sessionID string, sender models.User, content string) (models.Message, error) {
	s.sleep()

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.find(sessionID)
	if session == nil {
		return models.Message{}, ErrSessionNotFound
	}
	if !session.HasParticipant(sender.ID) {
		return models.Message{}, ErrNotParticipant
	}

	env := models.Envelope{
		Text:       content,
		Recipients: make(map[string]string),
	}
	for _, p := range session.Participants {
		if p.ID == sender.ID {
			continue
		}
		pair, ok, err := s.keys.Get(p.ID)
		if err != nil {
			return models.Message{}, fmt.Errorf("load keys for %s: %w", p.ID, err)
		}
		if !ok {
			// No key pair on record; this participant's copy stays absent
			// and degrades to the sentinel on read.
			continue
		}
		cipherText, err := crypto.EncryptMessage(content, pair.PublicKey)
		if err != nil {
			return models.Message{}, fmt.Errorf("encrypt for %s: %w", p.ID, err)
		}
		env.Recipients[p.ID] = cipherText
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return models.Message{}, fmt.Errorf("encode envelope: %w", err)
	}

	message := models.Message{
		ID:        uuid.NewString(),
		SenderID:  sender.ID,
		Content:   string(raw),
		Timestamp: s.now().UnixMilli(),
		Encrypted: true,
	}
	session.Messages = append(session.Messages, message)

	return message, nil
}

// GetDecryptedMessages returns the session's messages as readable by the
// given user: senders see their embedded plaintext, everyone else decrypts
// their entry in the recipient map. Messages that cannot be recovered come
// back with sentinel content rather than failing the call.
func (s *Store) GetDecryptedMessages(sessionID, userID string) ([]models.Message, error) {
	s.sleep()

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.find(sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !session.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	pair, ok, err := s.keys.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("load keys for %s: %w", userID, err)
	}
	if !ok {
		return nil, ErrKeysNotFound
	}

	out := make([]models.Message, 0, len(session.Messages))
	for _, m := range session.Messages {
		out = append(out, decryptFor(m, userID, pair))
	}
	return out, nil
}

// DecryptMessageFor renders a single message readable for the user, with
// the same participant and key checks as GetDecryptedMessages. Used by the
// realtime hub to fan a freshly stored message out per recipient.
func (s *Store) DecryptMessageFor(sessionID, userID string, m models.Message) (models.Message, error) {
	s.mu.Lock()
	session := s.find(sessionID)
	if session == nil {
		s.mu.Unlock()
		return models.Message{}, ErrSessionNotFound
	}
	if !session.HasParticipant(userID) {
		s.mu.Unlock()
		return models.Message{}, ErrNotParticipant
	}
	s.mu.Unlock()

	pair, ok, err := s.keys.Get(userID)
	if err != nil {
		return models.Message{}, fmt.Errorf("load keys for %s: %w", userID, err)
	}
	if !ok {
		return models.Message{}, ErrKeysNotFound
	}
	return decryptFor(m, userID, pair), nil
}

// IsParticipant reports whether the user belongs to the session.
func (s *Store) IsParticipant(sessionID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.find(sessionID)
	return session != nil && session.HasParticipant(userID)
}

// EndSession removes the session and every message in it, permanently.
// There is no secure wipe beyond dropping the data.
func (s *Store) EndSession(sessionID string) error {
	s.sleep()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, session := range s.sessions {
		if session.ID == sessionID {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			return nil
		}
	}
	return ErrSessionNotFound
}

// find returns the live session record. Caller holds the lock.
func (s *Store) find(sessionID string) *models.ChatSession {
	for _, session := range s.sessions {
		if session.ID == sessionID {
			return session
		}
	}
	return nil
}

// decryptFor renders one message for one reader.
func decryptFor(m models.Message, userID string, pair models.KeyPair) models.Message {
	if !m.Encrypted {
		return m
	}

	var env models.Envelope
	if err := json.Unmarshal([]byte(m.Content), &env); err != nil {
		m.Content = UndecryptableContent
		return m
	}

	if m.SenderID == userID {
		m.Content = env.Text
		m.Encrypted = false
		return m
	}

	cipherText, ok := env.Recipients[userID]
	if !ok {
		m.Content = UndecryptableContent
		return m
	}
	plaintext, err := crypto.DecryptMessage(cipherText, pair.PrivateKey)
	if err != nil {
		m.Content = UndecryptableContent
		return m
	}
	m.Content = plaintext
	m.Encrypted = false
	return m
}

func cloneSession(session *models.ChatSession) models.ChatSession {
	out := *session
	out.Participants = append([]models.User(nil), session.Participants...)
	out.Messages = append([]models.Message(nil), session.Messages...)
	return out
}

func (s *Store) sleep() {
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
}
