package ws

import (
	"testing"
	"time"

	"github.com/Ftffxu/ephemeral-chatty/internal/auth"
	"github.com/Ftffxu/ephemeral-chatty/internal/chat"
	"github.com/Ftffxu/ephemeral-chatty/internal/keystore"
	"github.com/Ftffxu/ephemeral-chatty/internal/storage"
)

func TestHubRun(t *testing.T) {
	mailer := &otpCapture{}
	users := auth.NewStore(storage.NewMemory(), auth.WithMailer(mailer))

	users.StartRegistration("alice@example.com", "alice", "pw")
	alice, err := users.VerifyOTP("alice@example.com", mailer.code)
	if err != nil {
		t.Fatal(err)
	}
	users.StartRegistration("bob@example.com", "bob", "pw")
	bob, err := users.VerifyOTP("bob@example.com", mailer.code)
	if err != nil {
		t.Fatal(err)
	}

	chats := chat.NewStore(keystore.New())
	session, _ := chats.CreateSession(alice, &bob, false, "")

	hub := NewHub(chats, users)
	go hub.Run()

	// Simulate a message broadcast
	hub.broadcast <- Inbound{
		SessionID: session.ID,
		UserID:    alice.ID,
		Content:   "Hello World",
	}

	// Give some time for the hub to process
	time.Sleep(100 * time.Millisecond)

	// Verify message was saved to the session store
	messages, err := chats.GetDecryptedMessages(session.ID, bob.ID)
	if err != nil {
		t.Fatalf("Failed to get messages: %v", err)
	}

	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}

	if messages[0].Content != "Hello World" {
		t.Errorf("Expected content 'Hello World', got '%s'", messages[0].Content)
	}
}

type otpCapture struct {
	code string
}

func (m *otpCapture) SendOTP(to, username, code string) error {
	m.code = code
	return nil
}
