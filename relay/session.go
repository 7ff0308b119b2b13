package relay

import (
	"sync"
	"time"
)

// Session is the resumable relay pairing state for one account. It is the
// Go counterpart of what a browser keeps in local storage: an unexpired
// token+key pair is equivalent to being authenticated with the relay.
type Session struct {
	Account    string    `json:"account"`
	Token      string    `json:"token"`
	PairingKey string    `json:"pairing_key"`
	Expire     time.Time `json:"expire"`
}

// Valid reports whether the session can still be attached.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.PairingKey != "" && time.Now().Before(s.Expire)
}

// SessionStore persists relay sessions across requests. Load returns
// (nil, nil) when no session is stored for the account.
type SessionStore interface {
	Load(account string) (*Session, error)
	Save(session *Session) error
	Clear(account string) error
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func (s *MemorySessionStore) Load(account string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[account]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *MemorySessionStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.Account] = &copied
	return nil
}

func (s *MemorySessionStore) Clear(account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, account)
	return nil
}
