package endpoints

import "sync"

// URLs is a snapshot of the two backend endpoints.
type URLs struct {
	ModelA string `json:"model_a_url"`
	ModelB string `json:"model_b_url"`
}

// Update carries optional replacements; nil fields leave the current URL
// unchanged.
type Update struct {
	ModelA *string `json:"model_a_url"`
	ModelB *string `json:"model_b_url"`
}

// Store holds the backend URLs shared by all requests. Both URLs are swapped
// under one write lock so readers never see a mixed pair.
type Store struct {
	mu   sync.RWMutex
	urls URLs
}

// NewStore seeds the store with the startup URLs.
func NewStore(initial URLs) *Store {
	return &Store{urls: initial}
}

// Get returns the current pair.
func (s *Store) Get() URLs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.urls
}

// Apply replaces the provided URLs and returns the resulting pair. No
// validation is performed on the values.
func (s *Store) Apply(u Update) URLs {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ModelA != nil {
		s.urls.ModelA = *u.ModelA
	}
	if u.ModelB != nil {
		s.urls.ModelB = *u.ModelB
	}
	return s.urls
}
