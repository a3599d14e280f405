package store

import "chat-sync/internal/apierr"

// SetError stores err as the current error shown by global banners.
func (s *Store) SetError(err *apierr.Error) {
	if err == nil {
		return
	}
	cp := *err
	s.mu.Lock()
	s.lastErr = &cp
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeError})
}

// ClearError resets the slot. With kinds given, only an error of one of those kinds is cleared.
func (s *Store) ClearError(kinds ...apierr.Kind) {
	s.mu.Lock()
	cleared := false
	if s.lastErr != nil {
		if len(kinds) == 0 {
			s.lastErr = nil
			cleared = true
		}
		for _, k := range kinds {
			if s.lastErr != nil && s.lastErr.Kind == k {
				s.lastErr = nil
				cleared = true
			}
		}
	}
	s.mu.Unlock()
	if cleared {
		s.publish(Change{Kind: ChangeError})
	}
}

// Error returns a copy of the current error, or nil.
func (s *Store) Error() *apierr.Error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastErr == nil {
		return nil
	}
	cp := *s.lastErr
	return &cp
}
