// Package credentials stores registry credentials in the system keyring.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// ErrNotFound is returned when no credential is stored for a registry.
var ErrNotFound = errors.New("credentials not found")

// defaultService is the keyring service name.
const defaultService = "stackup"

// Credentials is one stored username/password pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store persists registry credentials keyed by registry host.
type Store struct {
	ring keyring.Keyring
}

// Open opens the system keyring under the given service name; an empty name
// selects the default.
func Open(service string) (*Store, error) {
	if service == "" {
		service = defaultService
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// Get retrieves the credentials stored for a registry host.
func (s *Store) Get(registry string) (*Credentials, error) {
	item, err := s.ring.Get(registry)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read keyring: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(item.Data, &creds); err != nil {
		return nil, fmt.Errorf("decode stored credentials: %w", err)
	}
	return &creds, nil
}

// Set stores credentials for a registry host, replacing any existing entry.
func (s *Store) Set(registry string, creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := s.ring.Set(keyring.Item{
		Key:   registry,
		Data:  data,
		Label: "stackup registry " + registry,
	}); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// Delete removes the credentials for a registry host. Removing a missing
// entry is not an error.
func (s *Store) Delete(registry string) error {
	if err := s.ring.Remove(registry); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("remove keyring entry: %w", err)
	}
	return nil
}
