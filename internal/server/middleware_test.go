package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRecoverer(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/generate", nil)
	rr := httptest.NewRecorder()
	Recoverer(discard)(inner).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
}

func TestRecoverer_ResponseStarted(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"partial":`))
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/generate", nil)
	rr := httptest.NewRecorder()
	Recoverer(discard)(inner).ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Errorf("status: got %d, want 202 (already sent)", rr.Code)
	}
	if got := rr.Body.String(); got != `{"partial":` {
		t.Errorf("body: got %q, want the partial response only", got)
	}
}

func TestLogger_PassesThrough(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	Logger(discard)(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusTeapot {
		t.Errorf("status: got %d, want 418", rr.Code)
	}
}

func TestCORS(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	h := CORS(inner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/generate", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rr.Code)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Access-Control-Allow-Origin")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/generate", nil))
	if !called {
		t.Error("non-preflight request should reach the handler")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Unix(0, 0)
	rl.now = func() time.Time { return now }

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := rl.Middleware(ok)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if send("10.0.0.1") != http.StatusOK || send("10.0.0.1") != http.StatusOK {
		t.Fatal("burst requests should pass")
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}

	now = now.Add(time.Second)
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Errorf("after refill status = %d, want 200", code)
	}
}

func TestRateLimiter_CleanupIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Unix(0, 0)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	now = now.Add(time.Hour)
	rl.allow("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["a"]; ok {
		t.Error("idle visitor should have been removed")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.168.1.1:5555", "192.168.1.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.1:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.1:1", "5.6.7.8"},
		{"ipv6", nil, "[::1]:8080", "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
