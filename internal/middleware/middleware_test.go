package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-be/internal/auth"
	"storefront-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const secret = "test-secret"

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticate(t *testing.T) {
	mw := Authenticate(secret)

	t.Run("Missing Token", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok, "Context should not contain user ID")
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		mw(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		mw(http.NotFoundHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		tok, err := auth.GenerateJWT(secret, 1, utils.RoleAdmin, "admin@shop.test", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := utils.ActorFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, uint(1), actor.UserID)
			assert.True(t, actor.IsAdmin())
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": float64(1),
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}).SignedString([]byte(secret))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()

		mw(http.NotFoundHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic user:pass")
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireAuthAndAdmin(t *testing.T) {
	withActor := func(role string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(utils.SetUserContext(req.Context(), 5, "u@shop.test", role))
	}

	cases := []struct {
		name    string
		handler http.Handler
		req     *http.Request
		want    int
	}{
		{"auth anonymous", RequireAuth(http.HandlerFunc(okHandler)), httptest.NewRequest(http.MethodGet, "/", nil), http.StatusUnauthorized},
		{"auth user", RequireAuth(http.HandlerFunc(okHandler)), withActor(utils.RoleUser), http.StatusOK},
		{"admin anonymous", RequireAdmin(http.HandlerFunc(okHandler)), httptest.NewRequest(http.MethodGet, "/", nil), http.StatusUnauthorized},
		{"admin as user", RequireAdmin(http.HandlerFunc(okHandler)), withActor(utils.RoleUser), http.StatusForbidden},
		{"admin as admin", RequireAdmin(http.HandlerFunc(okHandler)), withActor(utils.RoleAdmin), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.handler.ServeHTTP(w, tc.req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, Tier) (bool, error) {
	return false, errors.New("redis down")
}

func TestLimiter(t *testing.T) {
	t.Run("Strict tier on checkout", func(t *testing.T) {
		h := NewLimiter(NewMemoryStore(0), "").Middleware(http.HandlerFunc(okHandler))

		codes := map[int]int{}
		for i := 0; i < TierStrict.Burst+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			codes[w.Code]++
		}
		assert.Equal(t, TierStrict.Burst, codes[http.StatusOK])
		assert.Equal(t, 1, codes[http.StatusTooManyRequests])
	})

	t.Run("Users have separate buckets", func(t *testing.T) {
		h := NewLimiter(NewMemoryStore(0), "").Middleware(http.HandlerFunc(okHandler))

		for _, userID := range []uint{1, 2} {
			for i := 0; i < TierStrict.Burst; i++ {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/one-click", nil)
				req = req.WithContext(utils.SetUserContext(req.Context(), userID, "", utils.RoleUser))
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
				require.Equal(t, http.StatusOK, w.Code)
			}
		}
	})

	t.Run("Tier resolution", func(t *testing.T) {
		l := NewLimiter(NewMemoryStore(0), "svc-key")

		internal := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", nil)
		internal.Header.Set("X-Service-Auth", "svc-key")
		assert.Equal(t, TierInternal, l.resolveTier(internal))

		approve := httptest.NewRequest(http.MethodPost, "/api/v1/admin/returns/3/approve", nil)
		assert.Equal(t, TierStrict, l.resolveTier(approve))

		listing := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		assert.Equal(t, TierGeneral, l.resolveTier(listing))

		listing.Header.Set("X-Client-Type", "frontend-heavy")
		assert.Equal(t, TierFrontend, l.resolveTier(listing))
	})

	t.Run("Store failure lets the request through", func(t *testing.T) {
		h := NewLimiter(failingStore{}, "").Middleware(http.HandlerFunc(okHandler))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()

	_, err := s.Allow(ctx, "a", TierGeneral)
	require.NoError(t, err)
	_, err = s.Allow(ctx, "b", TierGeneral)
	require.NoError(t, err)

	assert.Equal(t, 0, s.Sweep(time.Now()))
	assert.Equal(t, 2, s.Sweep(time.Now().Add(2*time.Minute)))
}

// TestRedisStore_Integration requires a running Redis and is skipped otherwise.
func TestRedisStore_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("redis not available")
	}

	store := NewRedisStore(client)
	tier := Tier{Name: "test", Limit: rate.Limit(1), Burst: 1}
	key := "itest:" + time.Now().Format(time.RFC3339Nano)

	allowed, err := store.Allow(ctx, key, tier)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.Allow(ctx, key, tier)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(1100 * time.Millisecond)
	allowed, err = store.Allow(ctx, key, tier)
	require.NoError(t, err)
	assert.True(t, allowed)
}
