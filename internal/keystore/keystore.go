// Package keystore holds per-user simulated key pairs for the lifetime of
// the process. Nothing here is persisted: a restart loses all keys, which is
// the ephemerality the application is built around.
package keystore

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/Ftffxu/ephemeral-chatty/internal/crypto"
	"github.com/Ftffxu/ephemeral-chatty/internal/models"
)

// Store maps user ids to key pairs. Public keys sit in the clear; private
// keys are sealed in memguard enclaves so they are encrypted at rest on the
// heap and wiped on purge. The keys themselves are simulated and carry no
// real security, but the handling mirrors how a real key store would treat
// them.
type Store struct {
	mu   sync.Mutex
	keys map[string]entry
}

type entry struct {
	publicKey string
	private   *memguard.Enclave
}

func New() *Store {
	return &Store{keys: make(map[string]entry)}
}

// Ensure returns the user's key pair, generating one on first use.
func (s *Store) Ensure(userID string) (models.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.keys[userID]; ok {
		return s.open(e)
	}

	pair := crypto.GenerateKeyPair()
	// NewEnclave wipes its input, so hand it a throwaway copy.
	s.keys[userID] = entry{
		publicKey: pair.PublicKey,
		private:   memguard.NewEnclave([]byte(pair.PrivateKey)),
	}
	return pair, nil
}

// Get returns the user's key pair if one has been generated.
func (s *Store) Get(userID string) (models.KeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.keys[userID]
	if !ok {
		return models.KeyPair{}, false, nil
	}
	pair, err := s.open(e)
	if err != nil {
		return models.KeyPair{}, false, err
	}
	return pair, true, nil
}

// Has reports whether the user already has a key pair.
func (s *Store) Has(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[userID]
	return ok
}

func (s *Store) open(e entry) (models.KeyPair, error) {
	buf, err := e.private.Open()
	if err != nil {
		return models.KeyPair{}, fmt.Errorf("open private key enclave: %w", err)
	}
	defer buf.Destroy()

	// buf.String() aliases the locked memory; copy before it is wiped.
	return models.KeyPair{
		PublicKey:  e.publicKey,
		PrivateKey: string(buf.Bytes()),
	}, nil
}

// Purge drops every key and wipes the enclave session state.
func (s *Store) Purge() {
	s.mu.Lock()
	s.keys = make(map[string]entry)
	s.mu.Unlock()
	memguard.Purge()
}
