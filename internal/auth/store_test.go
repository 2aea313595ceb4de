package auth

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Ftffxu/ephemeral-chatty/internal/models"
	"github.com/Ftffxu/ephemeral-chatty/internal/storage"
)

type captureMailer struct {
	to   string
	code string
}

func (m *captureMailer) SendOTP(to, username, code string) error {
	m.to = to
	m.code = code
	return nil
}

type fixture struct {
	store   *Store
	storage *storage.Memory
	mailer  *captureMailer
	now     *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := storage.NewMemory()
	mailer := &captureMailer{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{storage: st, mailer: mailer, now: &now}
	f.store = NewStore(st,
		WithMailer(mailer),
		WithClock(func() time.Time { return *f.now }),
	)
	return f
}

func (f *fixture) register(t *testing.T, email, username, password string) models.User {
	t.Helper()
	if _, err := f.store.StartRegistration(email, username, password); err != nil {
		t.Fatalf("StartRegistration failed: %v", err)
	}
	user, err := f.store.VerifyOTP(email, f.mailer.code)
	if err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	return user
}

func TestRegistrationFlow(t *testing.T) {
	f := newFixture(t)

	masked, err := f.store.StartRegistration("janedoe@example.com", "jane", "secret123")
	if err != nil {
		t.Fatalf("StartRegistration failed: %v", err)
	}
	if masked != "j***e@example.com" {
		t.Errorf("Expected masked email 'j***e@example.com', got '%s'", masked)
	}
	if f.mailer.to != "janedoe@example.com" {
		t.Errorf("Expected OTP delivered to registrant, got '%s'", f.mailer.to)
	}
	if len(f.mailer.code) != 6 {
		t.Errorf("Expected 6-digit OTP, got '%s'", f.mailer.code)
	}

	user, err := f.store.VerifyOTP("janedoe@example.com", f.mailer.code)
	if err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	if !user.Verified {
		t.Error("Expected verified user")
	}
	if len(user.UniqueID) != 8 {
		t.Errorf("Expected 8-character unique id, got '%s'", user.UniqueID)
	}
	if user.Password != "" {
		t.Error("Expected password stripped from returned user")
	}

	// The active session is set and persisted without the password.
	raw, ok, _ := f.storage.Get("currentUser")
	if !ok {
		t.Fatal("Expected currentUser persisted")
	}
	if strings.Contains(raw, "secret123") {
		t.Error("Persisted session must not contain the password")
	}

	// The pending record is gone.
	if _, err := f.store.ResendOTP("janedoe@example.com"); !errors.Is(err, ErrNoPendingRegistration) {
		t.Errorf("Expected pending registration discarded, got %v", err)
	}
}

func TestVerifyOTPIsCaseInsensitiveOnEmail(t *testing.T) {
	f := newFixture(t)
	f.store.StartRegistration("Jane@Example.com", "jane", "pw")

	if _, err := f.store.VerifyOTP("jane@example.com", f.mailer.code); err != nil {
		t.Errorf("VerifyOTP with differently-cased email failed: %v", err)
	}
}

func TestStartRegistrationDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jane@example.com", "jane", "pw")

	_, err := f.store.StartRegistration("JANE@example.com", "jane2", "pw2")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestStartRegistrationOverwritesPending(t *testing.T) {
	f := newFixture(t)

	f.store.StartRegistration("jane@example.com", "jane", "pw")
	firstCode := f.mailer.code

	f.store.StartRegistration("jane@example.com", "jane", "pw")
	secondCode := f.mailer.code

	// The superseded code no longer verifies.
	if firstCode != secondCode {
		if _, err := f.store.VerifyOTP("jane@example.com", firstCode); !errors.Is(err, ErrOTPInvalid) {
			t.Errorf("Expected ErrOTPInvalid for superseded code, got %v", err)
		}
	}
	if _, err := f.store.VerifyOTP("jane@example.com", secondCode); err != nil {
		t.Errorf("VerifyOTP with fresh code failed: %v", err)
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	f := newFixture(t)
	f.store.StartRegistration("jane@example.com", "jane", "pw")

	*f.now = f.now.Add(OTPValidity + time.Minute)

	_, err := f.store.VerifyOTP("jane@example.com", f.mailer.code)
	if !errors.Is(err, ErrOTPExpired) {
		t.Errorf("Expected ErrOTPExpired, got %v", err)
	}

	// No user was created.
	if _, err := f.store.Login("jane@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected no user after expired verification, got %v", err)
	}

	// The pending record is still there and can be resent.
	if _, err := f.store.ResendOTP("jane@example.com"); err != nil {
		t.Errorf("Expected pending registration to survive expiry, got %v", err)
	}
	if _, err := f.store.VerifyOTP("jane@example.com", f.mailer.code); err != nil {
		t.Errorf("VerifyOTP after resend failed: %v", err)
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	f := newFixture(t)
	f.store.StartRegistration("jane@example.com", "jane", "pw")

	wrong := "000000"
	if wrong == f.mailer.code {
		wrong = "000001"
	}

	if _, err := f.store.VerifyOTP("jane@example.com", wrong); !errors.Is(err, ErrOTPInvalid) {
		t.Errorf("Expected ErrOTPInvalid, got %v", err)
	}

	// The pending registration is unaffected; the real code still works.
	if _, err := f.store.VerifyOTP("jane@example.com", f.mailer.code); err != nil {
		t.Errorf("VerifyOTP with correct code failed: %v", err)
	}
}

func TestVerifyOTPNoPending(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.VerifyOTP("nobody@example.com", "123456"); !errors.Is(err, ErrNoPendingRegistration) {
		t.Errorf("Expected ErrNoPendingRegistration, got %v", err)
	}
}

func TestUniqueIDsAreDistinct(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, "a@example.com", "a", "pw")
	b := f.register(t, "b@example.com", "b", "pw")

	if a.UniqueID == b.UniqueID {
		t.Errorf("Expected distinct unique ids, both were '%s'", a.UniqueID)
	}
}

func TestLoginIdenticalErrors(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jane@example.com", "jane", "pw")
	f.store.Logout()

	_, unknownErr := f.store.Login("nobody@example.com", "pw")
	_, wrongPwErr := f.store.Login("jane@example.com", "not-the-password")

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongPwErr, ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials for both, got %v and %v", unknownErr, wrongPwErr)
	}
	if unknownErr.Error() != wrongPwErr.Error() {
		t.Errorf("Unknown email and wrong password must fail identically: %q vs %q",
			unknownErr.Error(), wrongPwErr.Error())
	}
}

func TestLoginSetsCurrentUser(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jane@example.com", "jane", "pw")
	f.store.Logout()

	user, err := f.store.Login("JANE@example.com", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.Password != "" {
		t.Error("Expected password stripped")
	}

	current := f.store.CurrentUser()
	if current == nil || current.ID != user.ID {
		t.Error("Expected current user to match logged-in user")
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jane@example.com", "jane", "pw")

	if err := f.store.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if f.store.CurrentUser() != nil {
		t.Error("Expected no current user after logout")
	}
	if _, ok, _ := f.storage.Get("currentUser"); ok {
		t.Error("Expected persisted session removed")
	}
}

func TestCurrentUserFromStorage(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "jane@example.com", "jane", "pw")

	// A fresh store over the same storage resumes the session.
	resumed := NewStore(f.storage)
	current := resumed.CurrentUser()
	if current == nil || current.ID != user.ID {
		t.Error("Expected session resumed from storage")
	}
}

func TestCurrentUserMalformedStorage(t *testing.T) {
	st := storage.NewMemory()
	st.Set("currentUser", "{not json")

	s := NewStore(st)
	if s.CurrentUser() != nil {
		t.Error("Expected malformed persisted session to resolve to no user")
	}
}

func TestHydrateFromStorage(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "jane@example.com", "jane", "pw")

	// Users persist with their password; a new store can log them in.
	raw, _, _ := f.storage.Get("users")
	var persisted []models.User
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		t.Fatalf("Persisted users not valid JSON: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Password != "pw" {
		t.Error("Expected persisted user record to include the password")
	}

	rehydrated := NewStore(f.storage)
	got, err := rehydrated.Login("jane@example.com", "pw")
	if err != nil {
		t.Fatalf("Login on rehydrated store failed: %v", err)
	}
	if got.ID != user.ID {
		t.Error("Expected same user after rehydration")
	}
}

func TestFindUserByUniqueID(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "jane@example.com", "jane", "pw")

	found, err := f.store.FindUserByUniqueID(user.UniqueID)
	if err != nil {
		t.Fatalf("FindUserByUniqueID failed: %v", err)
	}
	if found.ID != user.ID {
		t.Error("Expected matching user")
	}
	if found.Password != "" {
		t.Error("Expected password stripped")
	}

	if _, err := f.store.FindUserByUniqueID("NOSUCHID"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"janedoe@x.com", "j***e@x.com"},
		{"jane@example.com", "j***e@example.com"},
		{"ab@x.com", "a***@x.com"},
		{"a@x.com", "a***@x.com"},
		{"not-an-email", "not-an-email"},
		{"@x.com", "@x.com"},
	}
	for _, tt := range cases {
		if got := MaskEmail(tt.in); got != tt.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
