package client

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ServerURLStore persists a user-entered server address override. The
// override wins over the configured candidate list until cleared; reads
// are cheap enough to run before every request.
type ServerURLStore struct {
	path string
	mu   sync.Mutex
}

// NewServerURLStore stores the override at the given file path
func NewServerURLStore(path string) *ServerURLStore {
	return &ServerURLStore{path: path}
}

// ValidateServerURL checks that the address is a usable http(s) base URL
func ValidateServerURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server address must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("server address needs a host")
	}
	return nil
}

// Get returns the persisted override, or "" when none is set
func (s *ServerURLStore) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	override := strings.TrimSpace(string(data))
	if ValidateServerURL(override) != nil {
		return ""
	}
	return strings.TrimRight(override, "/")
}

// Set validates and persists the override
func (s *ServerURLStore) Set(raw string) error {
	if err := ValidateServerURL(raw); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create override directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(strings.TrimSpace(raw)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to persist server override: %w", err)
	}
	return nil
}

// Clear removes the override, restoring the configured default
func (s *ServerURLStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear server override: %w", err)
	}
	return nil
}
