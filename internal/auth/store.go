// Package auth implements registration, OTP verification and login over the
// key-value storage layer.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ftffxu/ephemeral-chatty/internal/crypto"
	"github.com/Ftffxu/ephemeral-chatty/internal/models"
	"github.com/Ftffxu/ephemeral-chatty/internal/storage"
)

// Sentinel errors carry the user-facing message surfaced at the API
// boundary. Login deliberately returns the same error for an unknown email
// and a wrong password.
var (
	ErrEmailTaken            = errors.New("User with this email already exists")
	ErrNoPendingRegistration = errors.New("No pending registration found for this email")
	ErrOTPExpired            = errors.New("Verification code has expired")
	ErrOTPInvalid            = errors.New("Invalid verification code")
	ErrInvalidCredentials    = errors.New("Invalid credentials")
	ErrUserNotFound          = errors.New("User not found")
)

// OTPValidity is how long a registration code stays usable.
const OTPValidity = 10 * time.Minute

const (
	usersKey       = "users"
	pendingKey     = "pendingRegistrations"
	currentUserKey = "currentUser"
)

const (
	otpDigits       = "0123456789"
	otpLength       = 6
	uniqueIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	uniqueIDLength  = 8
)

// Mailer delivers OTP codes. A nil mailer skips delivery, which the demo
// relies on when codes are read straight from the store in tests.
type Mailer interface {
	SendOTP(to, username, code string) error
}

// Store owns the registered users, the pending registrations and the active
// session pointer. State is hydrated from storage at construction and
// persisted back on every mutation.
type Store struct {
	mu      sync.Mutex
	storage storage.Storage
	mailer  Mailer
	now     func() time.Time
	latency time.Duration

	users   []models.User
	pending []models.PendingRegistration
	current *models.User
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the time source, used by tests to expire OTPs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLatency makes every operation sleep before running, emulating the
// network round-trip the browser original faked with setTimeout.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

// WithMailer sets the OTP delivery channel.
func WithMailer(m Mailer) Option {
	return func(s *Store) { s.mailer = m }
}

// NewStore hydrates a Store from storage. Corrupt persisted arrays are
// treated as empty rather than failing startup.
func NewStore(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage: st,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if raw, ok, _ := st.Get(usersKey); ok {
		if err := json.Unmarshal([]byte(raw), &s.users); err != nil {
			s.users = nil
		}
	}
	if raw, ok, _ := st.Get(pendingKey); ok {
		if err := json.Unmarshal([]byte(raw), &s.pending); err != nil {
			s.pending = nil
		}
	}
	return s
}

// StartRegistration begins a signup. An existing verified user with the
// same email rejects the attempt; an in-flight registration for the email
// is overwritten with a fresh code. Returns the masked email for display.
func (s *Store) StartRegistration(email, username, password string) (string, error) {
	s.sleep()

	s.mu.Lock()
	if s.findUser(email) != nil {
		s.mu.Unlock()
		return "", ErrEmailTaken
	}

	reg := models.PendingRegistration{
		Email:     email,
		Username:  username,
		Password:  password,
		OTP:       crypto.RandomString(otpDigits, otpLength),
		OTPExpiry: s.now().Add(OTPValidity).UnixMilli(),
	}

	replaced := false
	for i := range s.pending {
		if strings.EqualFold(s.pending[i].Email, email) {
			s.pending[i] = reg
			replaced = true
			break
		}
	}
	if !replaced {
		s.pending = append(s.pending, reg)
	}

	if err := s.persistPending(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	if s.mailer != nil {
		if err := s.mailer.SendOTP(email, username, reg.OTP); err != nil {
			return "", fmt.Errorf("send verification code: %w", err)
		}
	}
	return MaskEmail(email), nil
}

// VerifyOTP promotes a pending registration into a verified user, makes it
// the active session and persists everything. The pending record is
// discarded only on success.
func (s *Store) VerifyOTP(email, otp string) (models.User, error) {
	s.sleep()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.pending {
		if strings.EqualFold(s.pending[i].Email, email) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return models.User{}, ErrNoPendingRegistration
	}

	reg := s.pending[idx]
	if s.now().UnixMilli() > reg.OTPExpiry {
		return models.User{}, ErrOTPExpired
	}
	if reg.OTP != otp {
		return models.User{}, ErrOTPInvalid
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    reg.Email,
		Username: reg.Username,
		UniqueID: s.newUniqueID(),
		Password: reg.Password,
		Verified: true,
	}

	s.users = append(s.users, user)
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)

	if err := s.persistUsers(); err != nil {
		return models.User{}, err
	}
	if err := s.persistPending(); err != nil {
		return models.User{}, err
	}

	stripped := user.WithoutPassword()
	s.current = &stripped
	if err := s.persistCurrent(stripped); err != nil {
		return models.User{}, err
	}
	return stripped, nil
}

// ResendOTP regenerates the code and expiry of an in-flight registration.
func (s *Store) ResendOTP(email string) (string, error) {
	s.sleep()

	s.mu.Lock()
	idx := -1
	for i := range s.pending {
		if strings.EqualFold(s.pending[i].Email, email) {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return "", ErrNoPendingRegistration
	}

	s.pending[idx].OTP = crypto.RandomString(otpDigits, otpLength)
	s.pending[idx].OTPExpiry = s.now().Add(OTPValidity).UnixMilli()
	reg := s.pending[idx]

	if err := s.persistPending(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	if s.mailer != nil {
		if err := s.mailer.SendOTP(reg.Email, reg.Username, reg.OTP); err != nil {
			return "", fmt.Errorf("send verification code: %w", err)
		}
	}
	return MaskEmail(email), nil
}

// Login authenticates by email and password and makes the user the active
// session.
func (s *Store) Login(email, password string) (models.User, error) {
	s.sleep()

	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.findUser(email)
	if user == nil {
		return models.User{}, ErrInvalidCredentials
	}
	if user.Password != password {
		return models.User{}, ErrInvalidCredentials
	}

	stripped := user.WithoutPassword()
	s.current = &stripped
	if err := s.persistCurrent(stripped); err != nil {
		return models.User{}, err
	}
	return stripped, nil
}

// Logout clears the active session, in memory and in storage.
func (s *Store) Logout() error {
	s.sleep()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if err := s.storage.Remove(currentUserKey); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}

// CurrentUser returns the active session user: the in-memory pointer if
// set, otherwise the persisted copy. A missing or malformed persisted
// record means no user, never an error.
func (s *Store) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		u := *s.current
		return &u
	}

	raw, ok, err := s.storage.Get(currentUserKey)
	if err != nil || !ok {
		return nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	s.current = &user
	u := user
	return &u
}

// FindUserByUniqueID scans for the shareable handle and returns the first
// match with its password stripped.
func (s *Store) FindUserByUniqueID(uniqueID string) (models.User, error) {
	s.sleep()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].UniqueID == uniqueID {
			return s.users[i].WithoutPassword(), nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// UserByID resolves an authenticated caller's id to their account.
func (s *Store) UserByID(id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == id {
			return s.users[i].WithoutPassword(), nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// findUser returns the verified user with the given email, matched
// case-insensitively. Caller holds the lock.
func (s *Store) findUser(email string) *models.User {
	for i := range s.users {
		if strings.EqualFold(s.users[i].Email, email) {
			return &s.users[i]
		}
	}
	return nil
}

// newUniqueID generates a handle distinct from every existing user's.
// Caller holds the lock.
func (s *Store) newUniqueID() string {
	for {
		id := crypto.RandomString(uniqueIDCharset, uniqueIDLength)
		taken := false
		for i := range s.users {
			if s.users[i].UniqueID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

func (s *Store) persistUsers() error {
	raw, err := json.Marshal(s.users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := s.storage.Set(usersKey, string(raw)); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (s *Store) persistPending() error {
	raw, err := json.Marshal(s.pending)
	if err != nil {
		return fmt.Errorf("encode pending registrations: %w", err)
	}
	if err := s.storage.Set(pendingKey, string(raw)); err != nil {
		return fmt.Errorf("save pending registrations: %w", err)
	}
	return nil
}

func (s *Store) persistCurrent(user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode current user: %w", err)
	}
	if err := s.storage.Set(currentUserKey, string(raw)); err != nil {
		return fmt.Errorf("save current user: %w", err)
	}
	return nil
}

func (s *Store) sleep() {
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
}

// MaskEmail hides most of the local part for display, e.g. j***e@x.com.
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" {
		return email
	}
	local, domain := parts[0], parts[1]
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domain
}
