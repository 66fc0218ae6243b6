package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of one rate-limit check, carrying everything
// the RPC layer needs to populate response headers.
type Decision struct {
	Allowed    bool
	Remaining  int
	Limit      int
	RetryAfter time.Duration
}

// RateLimiter applies a per-client token bucket: rpm requests per minute
// refill with a burst ceiling. Buckets are created lazily per client id
// and pruned when idle.
type RateLimiter struct {
	rpm   int
	burst int

	mu      sync.Mutex
	buckets map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter with the configured requests-per-minute
// and burst size.
func NewRateLimiter(rpm, burst int) *RateLimiter {
	if rpm <= 0 {
		rpm = 60
	}
	if burst <= 0 {
		burst = rpm
	}
	return &RateLimiter{
		rpm:     rpm,
		burst:   burst,
		buckets: make(map[string]*clientBucket),
	}
}

// Check consumes one token from the client's bucket if available.
func (rl *RateLimiter) Check(clientID string) Decision {
	rl.mu.Lock()
	b, ok := rl.buckets[clientID]
	if !ok {
		b = &clientBucket{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.rpm)/60.0), rl.burst),
		}
		rl.buckets[clientID] = b
	}
	b.lastSeen = time.Now()
	if len(rl.buckets) > 10000 {
		rl.pruneLocked()
	}
	rl.mu.Unlock()

	d := Decision{Limit: rl.rpm}
	if b.limiter.Allow() {
		d.Allowed = true
		d.Remaining = int(b.limiter.Tokens())
		if d.Remaining < 0 {
			d.Remaining = 0
		}
		return d
	}

	d.Remaining = 0
	// Time until one token refills, rounded to the nearest whole second
	// (at least one) for the Retry-After header.
	refill := time.Duration(float64(time.Minute) / float64(rl.rpm))
	d.RetryAfter = refill.Round(time.Second)
	if d.RetryAfter < time.Second {
		d.RetryAfter = time.Second
	}
	return d
}

// pruneLocked drops buckets idle for over an hour. Caller holds rl.mu.
func (rl *RateLimiter) pruneLocked() {
	cutoff := time.Now().Add(-time.Hour)
	for id, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, id)
		}
	}
}

// ClientID derives the rate-limit key for a request: the API key header
// (first 8 chars, hashed) wins, then the first forwarded-for address,
// then the socket peer.
func ClientID(r *http.Request) string {
	if key := r.Header.Get("X-Api-Key"); key != "" {
		if len(key) > 8 {
			key = key[:8]
		}
		sum := sha256.Sum256([]byte(key))
		return "key:" + hex.EncodeToString(sum[:8])
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return "fwd:" + first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "peer:" + r.RemoteAddr
	}
	return "peer:" + host
}
