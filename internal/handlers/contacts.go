package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ftffxu/ephemeral-chatty/internal/middleware"
	"github.com/Ftffxu/ephemeral-chatty/internal/models"
	"github.com/Ftffxu/ephemeral-chatty/internal/storage"
)

// ContactsHandler manages each user's saved contacts. This is view-layer
// state: it talks to storage directly under savedContacts_<userId> and the
// auth/chat stores never see it.
type ContactsHandler struct {
	Storage storage.Storage
}

func contactsKey(userID string) string {
	return fmt.Sprintf("savedContacts_%s", userID)
}

func (h *ContactsHandler) load(userID string) ([]models.Contact, error) {
	raw, ok, err := h.Storage.Get(contactsKey(userID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.Contact{}, nil
	}
	var contacts []models.Contact
	if err := json.Unmarshal([]byte(raw), &contacts); err != nil {
		// Corrupt contact lists reset to empty rather than erroring.
		return []models.Contact{}, nil
	}
	return contacts, nil
}

func (h *ContactsHandler) save(userID string, contacts []models.Contact) error {
	raw, err := json.Marshal(contacts)
	if err != nil {
		return err
	}
	return h.Storage.Set(contactsKey(userID), string(raw))
}

func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.load(middleware.UserID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(contacts)
}

func (h *ContactsHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var contact models.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if contact.ID == "" || contact.Name == "" {
		http.Error(w, "id and name are required", http.StatusBadRequest)
		return
	}

	contacts, err := h.load(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	updated := false
	for i := range contacts {
		if contacts[i].ID == contact.ID {
			contacts[i] = contact
			updated = true
			break
		}
	}
	if !updated {
		contacts = append(contacts, contact)
	}

	if err := h.save(userID, contacts); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(contacts)
}

func (h *ContactsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	contactID := mux.Vars(r)["id"]

	contacts, err := h.load(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	kept := contacts[:0]
	for _, c := range contacts {
		if c.ID != contactID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(contacts) {
		http.Error(w, "Contact not found", http.StatusNotFound)
		return
	}

	if err := h.save(userID, kept); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
