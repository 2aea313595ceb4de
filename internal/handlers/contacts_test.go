package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/Ftffxu/ephemeral-chatty/internal/middleware"
	"github.com/Ftffxu/ephemeral-chatty/internal/models"
	"github.com/Ftffxu/ephemeral-chatty/internal/storage"
)

func TestContactsFlow(t *testing.T) {
	st := storage.NewMemory()
	handler := &ContactsHandler{Storage: st}

	// Empty list for a fresh user.
	req := authedRequest("GET", "/contacts", nil, "user-1", t)
	rr := httptest.NewRecorder()
	middleware.AuthMiddleware(http.HandlerFunc(handler.List)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	var contacts []models.Contact
	json.NewDecoder(rr.Body).Decode(&contacts)
	if len(contacts) != 0 {
		t.Errorf("Expected empty contacts, got %d", len(contacts))
	}

	// Save one.
	req = authedRequest("POST", "/contacts", models.Contact{ID: "BOB45678", Name: "Bob"}, "user-1", t)
	rr = httptest.NewRecorder()
	middleware.AuthMiddleware(http.HandlerFunc(handler.Save)).ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusCreated)
	}

	// Saving the same id renames instead of duplicating.
	req = authedRequest("POST", "/contacts", models.Contact{ID: "BOB45678", Name: "Bobby"}, "user-1", t)
	rr = httptest.NewRecorder()
	middleware.AuthMiddleware(http.HandlerFunc(handler.Save)).ServeHTTP(rr, req)

	json.NewDecoder(rr.Body).Decode(&contacts)
	if len(contacts) != 1 || contacts[0].Name != "Bobby" {
		t.Errorf("Expected single renamed contact, got %+v", contacts)
	}

	// Contacts are per user.
	raw, ok, _ := st.Get("savedContacts_user-1")
	if !ok || raw == "" {
		t.Error("Expected contacts persisted under savedContacts_user-1")
	}
	req = authedRequest("GET", "/contacts", nil, "user-2", t)
	rr = httptest.NewRecorder()
	middleware.AuthMiddleware(http.HandlerFunc(handler.List)).ServeHTTP(rr, req)
	contacts = nil
	json.NewDecoder(rr.Body).Decode(&contacts)
	if len(contacts) != 0 {
		t.Errorf("Expected no contacts for other user, got %d", len(contacts))
	}

	// Delete.
	req = authedRequest("DELETE", "/contacts/BOB45678", nil, "user-1", t)
	req = mux.SetURLVars(req, map[string]string{"id": "BOB45678"})
	rr = httptest.NewRecorder()
	middleware.AuthMiddleware(http.HandlerFunc(handler.Delete)).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusNoContent)
	}

	// Deleting again is a 404.
	rr = httptest.NewRecorder()
	middleware.AuthMiddleware(http.HandlerFunc(handler.Delete)).ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusNotFound)
	}
}
