package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portalautarca/portal/internal/ctxkeys"
	"github.com/portalautarca/portal/internal/model"
	"github.com/portalautarca/portal/internal/repository"
	"github.com/portalautarca/portal/internal/service"
)

type userStore struct {
	repository.UserRepository
	users map[int64]*model.User
}

func (s *userStore) ByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

var (
	admin  = &model.User{ID: 1, Email: "admin@portal.pt", Role: model.RoleAdmin, IsActive: true}
	parish = &model.User{ID: 2, Email: "parque@portal.pt", Role: model.RoleParish, IsActive: true}
)

func withUser(r *http.Request, u *model.User) *http.Request {
	if u == nil {
		return r
	}
	return r.WithContext(ctxkeys.WithUser(r.Context(), u))
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestGuard(t *testing.T) {
	h := Guard(DefaultPolicies)(http.HandlerFunc(okHandler))

	tests := []struct {
		name     string
		path     string
		accept   string
		user     *model.User
		want     int
		location string
	}{
		{"public", "/api/initiatives", "", nil, http.StatusOK, ""},
		{"backoffice ui redirects", "/backoffice/initiatives", "text/html", nil, http.StatusFound, "/login"},
		{"backoffice ui json", "/backoffice/initiatives", "application/json", nil, http.StatusUnauthorized, ""},
		{"backoffice api anonymous", "/api/backoffice/initiatives", "", nil, http.StatusUnauthorized, ""},
		{"backoffice api parish user", "/api/backoffice/initiatives", "", parish, http.StatusOK, ""},
		{"admin api parish user", "/api/admin/users", "", parish, http.StatusForbidden, ""},
		{"admin api admin", "/api/admin/users", "", admin, http.StatusOK, ""},
		{"admin api anonymous", "/api/admin/users", "", nil, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Accept", tt.accept)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, withUser(req, tt.user))

			assert.Equal(t, tt.want, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
			}
			if tt.want == http.StatusUnauthorized || tt.want == http.StatusForbidden {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(okHandler)

	for _, tt := range []struct {
		user *model.User
		want int
	}{
		{nil, http.StatusUnauthorized},
		{parish, http.StatusForbidden},
		{admin, http.StatusOK},
	} {
		rec := httptest.NewRecorder()
		h(rec, withUser(httptest.NewRequest(http.MethodGet, "/", nil), tt.user))
		assert.Equal(t, tt.want, rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	store := &userStore{users: map[int64]*model.User{1: admin}}
	auth := service.NewAuthService(store, "secret", time.Hour, false)
	token, _, err := auth.IssueToken(admin)
	require.NoError(t, err)

	var seen *model.User
	h := AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.User(r.Context())
	}))

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: service.SessionCookie, Value: token})
		h.ServeHTTP(httptest.NewRecorder(), req)
		require.NotNil(t, seen)
		assert.Equal(t, admin.ID, seen.ID)
	})

	t.Run("bearer", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		h.ServeHTTP(httptest.NewRecorder(), req)
		require.NotNil(t, seen)
	})

	t.Run("invalid cookie is cleared", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: service.SessionCookie, Value: "garbage"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Nil(t, seen)
		require.Len(t, rec.Result().Cookies(), 1)
		assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
	})

	t.Run("deactivated user", func(t *testing.T) {
		seen = nil
		store.users[1] = &model.User{ID: 1, Role: model.RoleAdmin, IsActive: false}
		defer func() { store.users[1] = admin }()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Nil(t, seen)
	})
}

func TestTraceID(t *testing.T) {
	var got string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ctxkeys.TraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, got, rec.Header().Get(TraceIDHeader))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, incoming, got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "<script>", got)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(okHandler)

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes, "forwarding headers do not change the key")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per client")
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	now = now.Add(20 * time.Second)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)

	now = now.Add(10 * time.Second)
	ok, wait := rl.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	now = now.Add(30 * time.Second)
	ok, _ = rl.Allow("a")
	assert.True(t, ok, "a new window opens once the period has passed")

	ok, _ = rl.Allow("b")
	assert.True(t, ok)
	now = now.Add(2 * time.Minute)
	_, _ = rl.Allow("c")
	assert.Len(t, rl.windows, 1, "closed windows are swept")
}

func TestRealIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name     string
		trusted  []netip.Prefix
		remote   string
		xff      []string
		realIP   string
		expected string
	}{
		{"no proxies configured", nil, "192.0.2.1:1234", []string{"198.51.100.7"}, "", "192.0.2.1:1234"},
		{"untrusted peer", trusted, "192.0.2.1:1234", []string{"198.51.100.7"}, "", "192.0.2.1:1234"},
		{"single hop", trusted, "10.0.0.5:1234", []string{"198.51.100.7"}, "", "198.51.100.7"},
		{"right-most untrusted hop", trusted, "10.0.0.5:1234", []string{"1.2.3.4, 203.0.113.9", "10.0.0.7"}, "", "203.0.113.9"},
		{"all hops trusted", trusted, "10.0.0.5:1234", []string{"10.1.1.1, 10.0.0.7"}, "", "10.1.1.1"},
		{"garbled chain", trusted, "10.0.0.5:1234", []string{"198.51.100.7, nonsense"}, "", "10.0.0.5:1234"},
		{"real ip header", trusted, "10.0.0.5:1234", nil, "198.51.100.8", "198.51.100.8"},
		{"no headers", trusted, "10.0.0.5:1234", nil, "", "10.0.0.5:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := RealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRequestLoggingKeepsStatus(t *testing.T) {
	h := RequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
