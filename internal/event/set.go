package event

import "sync"

// Set groups subscriptions that are acquired and released together.
// The zero value is ready to use.
type Set struct {
	mu   sync.Mutex
	subs []Subscription
}

// Add records sub. It accepts the results of Bus.Subscribe directly and
// passes err through, so a failed subscription is never recorded.
func (s *Set) Add(sub Subscription, err error) error {
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return nil
}

// Release cancels every subscription in the set and empties it.
// It returns how many subscriptions were released.
func (s *Set) Release() int {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
	return len(subs)
}

// Len returns how many subscriptions the set holds.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
