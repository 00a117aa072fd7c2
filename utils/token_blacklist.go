package utils

import (
	"context"
	"sync"
	"time"
)

// blacklistEntry keeps expiration metadata for a revoked token.
type blacklistEntry struct {
	expiresAt time.Time
}

var (
	blacklist   = map[string]blacklistEntry{}
	blacklistMu sync.RWMutex
)

// BlacklistToken revokes a token until its natural expiration. Redis carries
// the revocation normally; when the write fails the token is held in process
// memory so a logout on this instance still sticks.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := GetRedis().Set(ctx, "jwt:blacklist:"+token, "1", ttl).Err(); err == nil {
		return
	}

	blacklistMu.Lock()
	blacklist[token] = blacklistEntry{expiresAt: expiresAt}
	blacklistMu.Unlock()
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
// The in-memory map is consulted first so revocations taken while Redis was
// down keep holding.
func IsTokenBlacklisted(token string) bool {
	blacklistMu.RLock()
	entry, ok := blacklist[token]
	blacklistMu.RUnlock()
	if ok {
		if time.Now().After(entry.expiresAt) {
			blacklistMu.Lock()
			delete(blacklist, token)
			blacklistMu.Unlock()
			return false
		}
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := GetRedis().Exists(ctx, "jwt:blacklist:"+token).Result()
	if err != nil {
		// Redis down and not locally revoked: fail open to avoid a lockout.
		return false
	}
	return n > 0
}
