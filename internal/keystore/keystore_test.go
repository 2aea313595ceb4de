package keystore

import "testing"

func TestEnsureIsStable(t *testing.T) {
	s := New()

	first, err := s.Ensure("user-1")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if first.PublicKey == "" || first.PrivateKey == "" {
		t.Fatal("Expected non-empty key pair")
	}

	second, err := s.Ensure("user-1")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if second != first {
		t.Errorf("Expected the same pair on repeat Ensure, got %+v vs %+v", second, first)
	}
}

func TestEnsureDistinctPerUser(t *testing.T) {
	s := New()

	a, _ := s.Ensure("user-a")
	b, _ := s.Ensure("user-b")

	if a.PublicKey == b.PublicKey {
		t.Error("Expected distinct public keys for distinct users")
	}
}

func TestGetMissing(t *testing.T) {
	s := New()

	if _, ok, _ := s.Get("nobody"); ok {
		t.Error("Expected no key pair for unknown user")
	}
	if s.Has("nobody") {
		t.Error("Expected Has to report false for unknown user")
	}
}

func TestGetAfterEnsure(t *testing.T) {
	s := New()

	want, _ := s.Ensure("user-1")
	got, ok, err := s.Get("user-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected key pair to be present")
	}
	if got != want {
		t.Errorf("Get returned %+v, want %+v", got, want)
	}
}

func TestPurge(t *testing.T) {
	s := New()
	s.Ensure("user-1")
	s.Purge()

	if s.Has("user-1") {
		t.Error("Expected keys gone after Purge")
	}

	// The store stays usable after a purge.
	if _, err := s.Ensure("user-2"); err != nil {
		t.Errorf("Ensure after Purge failed: %v", err)
	}
}
