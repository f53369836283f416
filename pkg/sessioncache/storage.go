package sessioncache

import "sync"

// Storage is the key-value store the cache persists auth state into. The
// browser frontend backs this with localStorage; Go callers typically use
// MemoryStorage or a small file-backed implementation.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Storage keys. Auth state survives a restart through the first three, which
// live in the cache's persistent store. The oauth state nonce is scoped to one
// login attempt and lives only in the tab-scoped store.
const (
	KeyTokens  = "auth_tokens"
	KeyUser    = "auth_user"
	KeySession = "auth_session"
	KeyState   = "oauth_state"
)

// MemoryStorage is a goroutine-safe in-memory Storage.
type MemoryStorage struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{m: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *MemoryStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *MemoryStorage) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}
