// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginProtectionConfig holds configuration for login brute-force protection.
type LoginProtectionConfig struct {
	// MaxAttempts is the number of failed attempts before lockout.
	MaxAttempts int

	// LockoutDuration is the base lockout period. Repeated lockouts back
	// off exponentially from this value.
	LockoutDuration time.Duration

	// RateLimit is the per-IP request rate for POST requests.
	RateLimit rate.Limit

	// RateBurst is the per-IP burst size.
	RateBurst int
}

// DefaultLoginProtectionConfig returns sensible defaults:
// 5 attempts, 15 minute base lockout, 1 req/s with burst of 5.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		MaxAttempts:     5,
		LockoutDuration: 15 * time.Minute,
		RateLimit:       rate.Limit(1),
		RateBurst:       5,
	}
}

// attemptRecord tracks failed login attempts for one email address.
type attemptRecord struct {
	count       int
	lockouts    int
	lockedUntil time.Time
	lastAttempt time.Time
}

// LoginProtection guards the login endpoint against brute-force attacks
// with per-IP rate limiting and per-account lockout.
type LoginProtection struct {
	cfg LoginProtectionConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	attempts map[string]*attemptRecord
}

// NewLoginProtection creates a LoginProtection and starts its cleanup loop.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	lp := &LoginProtection{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
		attempts: make(map[string]*attemptRecord),
	}
	go lp.cleanupLoop()
	return lp
}

// Middleware rate-limits POST requests per client IP. GET requests
// (rendering the login form) pass through unthrottled.
func (lp *LoginProtection) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		ip := getClientIP(r)
		if !lp.limiter(ip).Allow() {
			slog.Warn("login rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (lp *LoginProtection) limiter(ip string) *rate.Limiter {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	l, ok := lp.limiters[ip]
	if !ok {
		l = rate.NewLimiter(lp.cfg.RateLimit, lp.cfg.RateBurst)
		lp.limiters[ip] = l
	}
	return l
}

// IsLocked reports whether the account is currently locked out, and if so
// for how much longer.
func (lp *LoginProtection) IsLocked(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	rec, ok := lp.attempts[normalizeEmail(email)]
	if !ok {
		return false, 0
	}
	if remaining := time.Until(rec.lockedUntil); remaining > 0 {
		return true, remaining
	}
	return false, 0
}

// RecordFailure registers a failed login for the account. Once the attempt
// count reaches MaxAttempts the account is locked; each successive lockout
// doubles the duration, capped at 24 hours.
func (lp *LoginProtection) RecordFailure(email string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	key := normalizeEmail(email)
	rec, ok := lp.attempts[key]
	if !ok {
		rec = &attemptRecord{}
		lp.attempts[key] = rec
	}

	rec.count++
	rec.lastAttempt = time.Now()

	if rec.count >= lp.cfg.MaxAttempts {
		lockout := lp.cfg.LockoutDuration << rec.lockouts
		if max := 24 * time.Hour; lockout > max {
			lockout = max
		}
		rec.lockedUntil = time.Now().Add(lockout)
		rec.lockouts++
		rec.count = 0

		slog.Warn("account locked after repeated failed logins",
			"email", key,
			"lockout", lockout,
		)
	}
}

// RecordSuccess clears the failure record for the account.
func (lp *LoginProtection) RecordSuccess(email string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	delete(lp.attempts, normalizeEmail(email))
}

// RemainingAttempts returns how many failed attempts the account has left
// before lockout.
func (lp *LoginProtection) RemainingAttempts(email string) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	rec, ok := lp.attempts[normalizeEmail(email)]
	if !ok {
		return lp.cfg.MaxAttempts
	}
	return lp.cfg.MaxAttempts - rec.count
}

// cleanupLoop drops stale limiters and expired attempt records.
func (lp *LoginProtection) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		lp.mu.Lock()
		now := time.Now()
		for key, rec := range lp.attempts {
			if now.After(rec.lockedUntil) && now.Sub(rec.lastAttempt) > time.Hour {
				delete(lp.attempts, key)
			}
		}
		if len(lp.limiters) > 10000 {
			lp.limiters = make(map[string]*rate.Limiter)
		}
		lp.mu.Unlock()
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// getClientIP extracts the client IP address, preferring reverse-proxy
// headers over the raw remote address.
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
