package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by ConsumeRefresh for unknown or expired tokens.
var ErrNotFound = errors.New("token not found")

// TokenStore persists revoked access-token ids and live refresh tokens.
type TokenStore interface {
	RevokeJTI(ctx context.Context, jti, userID string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	SaveRefresh(ctx context.Context, token string, s RefreshSession, ttl time.Duration) error
	ConsumeRefresh(ctx context.Context, token string) (*RefreshSession, error)
	DeleteRefresh(ctx context.Context, token string) error
}

type revocationEntry struct {
	ExpiresAt time.Time
	UserID    string
}

type refreshEntry struct {
	Session   RefreshSession
	ExpiresAt time.Time
}

// MemoryTokenStore keeps tokens in process memory, with a background sweep
// of expired entries every 5 minutes. Used when REDIS_URL is not set; tokens
// do not survive a restart and are not shared between replicas.
type MemoryTokenStore struct {
	mu       sync.RWMutex
	revoked  map[string]revocationEntry // JTI -> entry
	refresh  map[string]refreshEntry
	userJTIs map[string][]string // userID -> []JTI
	now      func() time.Time
	done     chan struct{}
}

func NewMemoryTokenStore() *MemoryTokenStore {
	s := &MemoryTokenStore{
		revoked:  make(map[string]revocationEntry),
		refresh:  make(map[string]refreshEntry),
		userJTIs: make(map[string][]string),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *MemoryTokenStore) RevokeJTI(_ context.Context, jti, userID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[jti] = revocationEntry{ExpiresAt: until, UserID: userID}
	if userID != "" {
		s.userJTIs[userID] = append(s.userJTIs[userID], jti)
	}
	return nil
}

func (s *MemoryTokenStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[jti]
	return ok, nil
}

// RevokedForUser returns how many live revocations belong to userID.
func (s *MemoryTokenStore) RevokedForUser(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, jti := range s.userJTIs[userID] {
		if _, ok := s.revoked[jti]; ok {
			count++
		}
	}
	return count
}

func (s *MemoryTokenStore) SaveRefresh(_ context.Context, token string, sess RefreshSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh[token] = refreshEntry{Session: sess, ExpiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) ConsumeRefresh(_ context.Context, token string) (*RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.refresh[token]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.refresh, token)
	if s.now().After(e.ExpiresAt) {
		return nil, ErrNotFound
	}
	sess := e.Session
	return &sess, nil
}

func (s *MemoryTokenStore) DeleteRefresh(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.refresh, token)
	return nil
}

// Count returns the number of revoked access tokens still tracked.
func (s *MemoryTokenStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.revoked)
}

// Close stops the background cleanup goroutine. Safe to call more than once.
func (s *MemoryTokenStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *MemoryTokenStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup drops revocations for tokens past their natural expiry and
// refresh tokens past their TTL.
func (s *MemoryTokenStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, entry := range s.revoked {
		if !now.After(entry.ExpiresAt) {
			continue
		}
		delete(s.revoked, jti)

		if entry.UserID != "" {
			jtis := s.userJTIs[entry.UserID]
			for i, id := range jtis {
				if id == jti {
					s.userJTIs[entry.UserID] = append(jtis[:i], jtis[i+1:]...)
					break
				}
			}
			if len(s.userJTIs[entry.UserID]) == 0 {
				delete(s.userJTIs, entry.UserID)
			}
		}
	}

	for token, e := range s.refresh {
		if now.After(e.ExpiresAt) {
			delete(s.refresh, token)
		}
	}
}
