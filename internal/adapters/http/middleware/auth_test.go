package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestStore(now *time.Time) *SessionStore {
	ss := NewSessionStore()
	ss.now = func() time.Time { return *now }
	return ss
}

// TestSessionStore_Lifecycle tests create, get and delete.
func TestSessionStore_Lifecycle(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ss := newTestStore(&now)

	token, err := ss.Create(Session{Email: "owner@shop.test", Role: "owner", APIToken: "jwt"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token len = %d", len(token))
	}
	got, ok := ss.Get(token)
	if !ok || got.Email != "owner@shop.test" || got.Token != token || !got.CreatedAt.Equal(now) {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
	ss.Delete(token)
	if _, ok := ss.Get(token); ok {
		t.Fatal("session should be gone after Delete")
	}
}

// TestSessionStore_Expiry drops sessions past the TTL or the credential expiry.
func TestSessionStore_Expiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ss := newTestStore(&now)
	var expired []string
	ss.OnExpire(func(token string) { expired = append(expired, token) })

	short, _ := ss.Create(Session{APIToken: "jwt", ExpiresAt: now.Add(time.Hour)})
	long, _ := ss.Create(Session{APIToken: "opaque"})

	now = now.Add(2 * time.Hour)
	if _, ok := ss.Get(short); ok {
		t.Error("session with expired credential should be dropped")
	}
	if _, ok := ss.Get(long); !ok {
		t.Error("session without credential expiry should live until the TTL")
	}

	now = now.Add(SessionTTL)
	if _, ok := ss.Get(long); ok {
		t.Error("session past the TTL should be dropped")
	}
	if len(expired) != 2 || ss.Len() != 0 {
		t.Errorf("expired = %v, len = %d", expired, ss.Len())
	}
}

// TestAuth_SetsSessionInContext reads the cookie into the request context.
func TestAuth_SetsSessionInContext(t *testing.T) {
	ss := NewSessionStore()
	token, _ := ss.Create(Session{Email: "staff@shop.test", Role: "staff", APIToken: "jwt"})

	var got Session
	var ok bool
	handler := Auth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetSessionFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/calendar", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got.Email != "staff@shop.test" {
		t.Fatalf("session = %+v, %v", got, ok)
	}

	req = httptest.NewRequest("GET", "/calendar", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "unknown"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if ok {
		t.Fatal("unknown token should not authenticate")
	}
}

// TestRequireAuth redirects pages and rejects API calls.
func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/calendar", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Errorf("page: status = %d, location = %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/calendar", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("api: status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest("GET", "/api/calendar", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{Role: "staff"}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("signed in: status = %d, want 200", rr.Code)
	}
}

// TestRequireRole rejects other roles with 403.
func TestRequireRole(t *testing.T) {
	handler := RequireRole("owner")(okHandler(http.StatusOK))

	req := httptest.NewRequest("GET", "/admin/perf", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{Role: "staff"}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("staff: status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest("GET", "/admin/perf", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{Role: "owner"}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("owner: status = %d, want 200", rr.Code)
	}
}

// TestSessionCookie sets and clears the cookie.
func TestSessionCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "abc")
	c := rr.Result().Cookies()
	if len(c) != 1 || c[0].Name != SessionCookieName || c[0].Value != "abc" || !c[0].HttpOnly {
		t.Fatalf("cookie = %+v", c)
	}
	rr = httptest.NewRecorder()
	ClearSessionCookie(rr)
	if !strings.Contains(rr.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("clear cookie header = %q", rr.Header().Get("Set-Cookie"))
	}
}

// TestRateLimiter refills per interval and sweeps idle clients.
func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("third request in the interval should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other clients have their own bucket")
	}
	now = now.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("bucket should refill after the interval")
	}
	now = now.Add(10 * time.Minute)
	if n := rl.Sweep(5 * time.Minute); n != 2 {
		t.Errorf("Sweep dropped %d, want 2", n)
	}
}

// TestRateLimit_Middleware returns 429 once the bucket is empty.
func TestRateLimit_Middleware(t *testing.T) {
	handler := RateLimit(NewRateLimiter(1, time.Hour))(okHandler(http.StatusOK))
	codes := []int{}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/calendar", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

// TestCSRF_ExemptsJSONAndBlocksForms checks both sides of the exemption.
func TestCSRF_ExemptsJSONAndBlocksForms(t *testing.T) {
	key := make([]byte, 32)
	handler := CSRF(key, false, nil)(okHandler(http.StatusOK))

	req := httptest.NewRequest("POST", "/api/appointments", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("json post: status = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest("POST", "/login", strings.NewReader("email=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("form post without token: status = %d, want 403", rr.Code)
	}
}

// TestSecurityHeaders sets the baseline headers.
func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(okHandler(http.StatusOK)).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}
