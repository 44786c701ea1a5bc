package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Tier is one rate limit policy.
type Tier struct {
	Name  string
	Limit rate.Limit
	Burst int
}

var (
	// TierStrict covers order placement and money movement.
	TierStrict   = Tier{Name: "strict", Limit: rate.Limit(2), Burst: 5}
	TierGeneral  = Tier{Name: "general", Limit: rate.Limit(10), Burst: 20}
	TierFrontend = Tier{Name: "frontend", Limit: rate.Limit(20), Burst: 40}
	TierInternal = Tier{Name: "internal", Limit: rate.Limit(100), Burst: 200}
)

var strictSuffixes = []string{"/checkout", "/one-click", "/approve"}

// LimiterStore holds the token buckets.
type LimiterStore interface {
	Allow(ctx context.Context, key string, tier Tier) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps one x/time/rate limiter per key in process.
type MemoryStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	idle     time.Duration
}

func NewMemoryStore(idle time.Duration) *MemoryStore {
	if idle <= 0 {
		idle = 3 * time.Minute
	}
	return &MemoryStore{visitors: make(map[string]*visitor), idle: idle}
}

func (s *MemoryStore) Allow(_ context.Context, key string, tier Tier) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(tier.Limit, tier.Burst)}
		s.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow(), nil
}

// Sweep drops visitors idle for longer than the configured window.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.idle {
			delete(s.visitors, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle visitors every minute until ctx is done.
func (s *MemoryStore) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Limiter throttles requests per caller identity and tier.
type Limiter struct {
	store       LimiterStore
	internalKey string
}

func NewLimiter(store LimiterStore, internalKey string) *Limiter {
	return &Limiter{store: store, internalKey: internalKey}
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tier := l.resolveTier(r)
		key := fmt.Sprintf("%s:%s", identity(r), tier.Name)

		allowed, err := l.store.Allow(r.Context(), key, tier)
		if err != nil {
			// A broken limiter backend must not take the API down with it.
			logger.FromCtx(r.Context()).Error("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			logger.FromCtx(r.Context()).Warn("rate limited", zap.String("key", key))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// identity prefers the authenticated user, then a client device id, then
// the remote IP.
func identity(r *http.Request) string {
	if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
		return fmt.Sprintf("user:%d", userID)
	}
	if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
		return "device:" + deviceID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

func (l *Limiter) resolveTier(r *http.Request) Tier {
	if l.internalKey != "" && r.Header.Get("X-Service-Auth") == l.internalKey {
		return TierInternal
	}
	if r.Method == http.MethodPost {
		for _, suffix := range strictSuffixes {
			if strings.HasSuffix(r.URL.Path, suffix) {
				return TierStrict
			}
		}
	}
	if r.Header.Get("X-Client-Type") == "frontend-heavy" {
		return TierFrontend
	}
	return TierGeneral
}
