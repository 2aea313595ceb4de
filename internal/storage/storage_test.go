package storage

import "testing"

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()

	if _, ok, _ := m.Get("users"); ok {
		t.Error("Expected empty store to report key absent")
	}

	m.Set("users", "[]")
	value, ok, err := m.Get("users")
	if err != nil {
		t.Errorf("Get failed: %v", err)
	}
	if !ok || value != "[]" {
		t.Errorf("Expected '[]', got '%s' (present=%v)", value, ok)
	}

	m.Set("users", `[{"id":"u1"}]`)
	value, _, _ = m.Get("users")
	if value != `[{"id":"u1"}]` {
		t.Errorf("Expected overwritten value, got '%s'", value)
	}

	m.Remove("users")
	if _, ok, _ := m.Get("users"); ok {
		t.Error("Expected key absent after Remove")
	}
}
