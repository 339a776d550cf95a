package web

import (
	"container/list"
	"context"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sitesmith/sitesmith/internal/blob"
)

// securityHeaders adds security-related HTTP headers to all responses.
// Rendered sites pull fonts from Google and images from any https host,
// blob: previews and imgOrigins (the local upload server).
func securityHeaders(next http.Handler, imgOrigins ...string) http.Handler {
	imgSrc := strings.Join(append([]string{"'self'", "data:", "blob:", "https:"}, imgOrigins...), " ")
	csp := "default-src 'self'; " +
		"script-src 'self'; " +
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
		"font-src 'self' data: https://fonts.gstatic.com; " +
		"img-src " + imgSrc + "; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", csp)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// uploadOrigin returns the http origin local uploads are served from, or ""
// when uploads are same-origin or https.
func uploadOrigin(u blob.Uploader) string {
	local, ok := u.(*blob.Local)
	if !ok {
		return ""
	}
	parsed, err := url.Parse(local.PublicURL)
	if err != nil || parsed.Scheme != "http" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

// cors adds CORS headers for the allowed origins and answers preflight
// requests with an empty 200.
func cors(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, o := range origins {
			if o == "*" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				break
			}
			if o == origin && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				break
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// evictionLogInterval is the minimum time between eviction log messages.
const evictionLogInterval = 30 * time.Second

// ipLimiter tracks a per-IP token bucket and its position in the LRU list.
type ipLimiter struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands out one token bucket per client address. At most
// maxIPs buckets are kept; the least recently used is evicted first.
type rateLimiter struct {
	mu     sync.Mutex
	items  map[string]*list.Element
	order  *list.List // front = most recent
	limit  rate.Limit
	burst  int
	maxIPs int

	lastEvictLog time.Time
	evictCount   int
}

// newRateLimiter allows perMinute requests per address, with bursts of the
// same size. A stale-entry sweep runs until ctx is cancelled.
func newRateLimiter(ctx context.Context, perMinute, maxIPs int) *rateLimiter {
	if maxIPs <= 0 {
		maxIPs = 10000
	}
	rl := &rateLimiter{
		items:  make(map[string]*list.Element),
		order:  list.New(),
		limit:  rate.Limit(float64(perMinute) / 60),
		burst:  perMinute,
		maxIPs: maxIPs,
	}
	go rl.sweep(ctx)
	return rl
}

func (rl *rateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for e := rl.order.Back(); e != nil; {
				lim := e.Value.(*ipLimiter)
				prev := e.Prev()
				if now.Sub(lim.lastSeen) > 10*time.Minute {
					rl.order.Remove(e)
					delete(rl.items, lim.ip)
				}
				e = prev
			}
			rl.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// allow takes a token from ip's bucket.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	elem, ok := rl.items[ip]
	if ok {
		rl.order.MoveToFront(elem)
		elem.Value.(*ipLimiter).lastSeen = time.Now()
	} else {
		if rl.order.Len() >= rl.maxIPs {
			if back := rl.order.Back(); back != nil {
				evicted := back.Value.(*ipLimiter)
				rl.order.Remove(back)
				delete(rl.items, evicted.ip)
				rl.evictCount++
				if time.Since(rl.lastEvictLog) >= evictionLogInterval {
					log.Printf("[web] Rate limiter evicted %d address(es) (at capacity: %d)", rl.evictCount, rl.maxIPs)
					rl.lastEvictLog = time.Now()
					rl.evictCount = 0
				}
			}
		}
		elem = rl.order.PushFront(&ipLimiter{
			ip:       ip,
			limiter:  rate.NewLimiter(rl.limit, rl.burst),
			lastSeen: time.Now(),
		})
		rl.items[ip] = elem
	}
	return elem.Value.(*ipLimiter).limiter.Allow()
}

// wrap rejects requests over the limit with 429.
func (rl *rateLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "10")
			renderJSON(w, http.StatusTooManyRequests, publishResponse{Error: "rate limit exceeded, try again shortly"})
			return
		}
		next(w, r)
	}
}

// clientIP extracts the client IP from the request. Forwarding headers are
// only trusted when the immediate peer is a loopback or private address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peerIP := net.ParseIP(host)
	trustedProxy := peerIP != nil && (peerIP.IsLoopback() || peerIP.IsPrivate())

	if trustedProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	if peerIP != nil {
		return peerIP.String()
	}
	return host
}
