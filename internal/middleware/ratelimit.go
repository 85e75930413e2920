package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimit enforces a fixed-window request quota per caller. Authenticated
// requests are keyed by user ID so a shared NAT does not starve its users;
// anonymous requests fall back to the client IP.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	var mu sync.Mutex
	windows := make(map[string]*window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callerKey(r)
			now := time.Now()

			mu.Lock()
			win := windows[key]
			if win == nil || now.After(win.resetAt) {
				if len(windows) > 10000 {
					pruneWindows(windows, now)
				}
				win = &window{resetAt: now.Add(per)}
				windows[key] = win
			}
			win.count++
			exceeded := win.count > limit
			retryAfter := win.resetAt.Sub(now)
			mu.Unlock()

			if exceeded {
				secs := int(retryAfter.Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func pruneWindows(windows map[string]*window, now time.Time) {
	for key, win := range windows {
		if now.After(win.resetAt) {
			delete(windows, key)
		}
	}
}

func callerKey(r *http.Request) string {
	if userID := UserIDFromContext(r.Context()); userID != "" {
		return "user:" + userID
	}
	return "ip:" + clientIPForRateLimit(r)
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
