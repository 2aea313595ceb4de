package models

// User is a registered account. Password is kept in cleartext because this
// is a demo system; copies handed to callers have it stripped.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	UniqueID string `json:"uniqueId"`
	Password string `json:"password,omitempty"`
	Verified bool   `json:"verified"`
}

// WithoutPassword returns a copy of the user safe to hand to callers or
// persist as the active session.
func (u User) WithoutPassword() User {
	u.Password = ""
	return u
}

// PendingRegistration is an in-flight signup waiting for OTP verification.
// OTPExpiry is a Unix millisecond timestamp.
type PendingRegistration struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	OTP       string `json:"otp"`
	OTPExpiry int64  `json:"otpExpiry"`
}

// KeyPair is a simulated public/private key pair. The two strings have no
// mathematical relationship; see the crypto package.
type KeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// ChatSession is an ephemeral container of participants and messages.
// The participant list is fixed at creation and messages are append-only.
// CreatedAt is a Unix millisecond timestamp.
type ChatSession struct {
	ID           string    `json:"id"`
	Participants []User    `json:"participants"`
	Messages     []Message `json:"messages"`
	CreatedAt    int64     `json:"createdAt"`
	IsGroup      bool      `json:"isGroup"`
	Name         string    `json:"name,omitempty"`
}

// HasParticipant reports whether the user is a member of the session.
func (s *ChatSession) HasParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// Message is a single chat message. For an encrypted message Content holds
// a JSON-encoded Envelope; Timestamp is a Unix millisecond timestamp.
type Message struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Encrypted bool   `json:"encrypted"`
}

// Envelope is the stored content of an encrypted message: the sender's own
// plaintext plus one ciphertext per other participant, keyed by user id.
type Envelope struct {
	Text       string            `json:"text"`
	Recipients map[string]string `json:"recipients"`
}

// Contact is a saved-contact entry managed entirely by the view layer under
// the savedContacts_<userId> storage key; the stores never touch it.
type Contact struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
