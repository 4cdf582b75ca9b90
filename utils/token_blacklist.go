package utils

import (
	"context"
	"sync"
	"time"
)

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.RWMutex
)

func revokedKey(tokenID string) string {
	return "jwt:revoked:" + tokenID
}

// RevokeToken remembers a token ID until the token would have expired anyway.
func RevokeToken(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, revokedKey(tokenID), "1", ttl).Err(); err == nil {
			return
		}
	}
	// Fallback to in-memory (single instance only)
	revokedMu.Lock()
	revoked[tokenID] = expiresAt
	revokedMu.Unlock()
}

// IsTokenRevoked reports whether a token ID was revoked before its natural expiry.
func IsTokenRevoked(tokenID string) bool {
	if tokenID == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, err := rc.Exists(ctx, revokedKey(tokenID)).Result(); err == nil && n > 0 {
			return true
		}
	}
	revokedMu.RLock()
	expiresAt, ok := revoked[tokenID]
	revokedMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		revokedMu.Lock()
		delete(revoked, tokenID)
		revokedMu.Unlock()
		return false
	}
	return true
}
