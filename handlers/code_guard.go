package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeGuard enforces single use of an authorization code. Browsers re-fire the
// callback (refresh, back button), and a second exchange of the same code is
// rejected by the provider anyway, so the duplicate is caught before any
// provider call is made.
type CodeGuard interface {
	// FirstUse reports whether this call is the first sighting of the code.
	FirstUse(ctx context.Context, code string) (bool, error)
}

const codeGuardTTL = 10 * time.Minute

// RedisCodeGuard marks codes in Redis so the guard holds across replicas.
type RedisCodeGuard struct {
	client *redis.Client
}

func NewRedisCodeGuard(client *redis.Client) *RedisCodeGuard {
	return &RedisCodeGuard{client: client}
}

func (g *RedisCodeGuard) FirstUse(ctx context.Context, code string) (bool, error) {
	return g.client.SetNX(ctx, "authcode:used:"+code, "1", codeGuardTTL).Result()
}

// MemoryCodeGuard is the single-process fallback used when Redis is not
// configured.
type MemoryCodeGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryCodeGuard() *MemoryCodeGuard {
	return &MemoryCodeGuard{seen: make(map[string]time.Time)}
}

func (g *MemoryCodeGuard) FirstUse(_ context.Context, code string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	for c, at := range g.seen {
		if now.Sub(at) > codeGuardTTL {
			delete(g.seen, c)
		}
	}
	if _, ok := g.seen[code]; ok {
		return false, nil
	}
	g.seen[code] = now
	return true, nil
}
