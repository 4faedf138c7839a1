package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"invoice-generator/internal/cache"
	"invoice-generator/internal/config"
	"invoice-generator/internal/metrics"
	apperrors "invoice-generator/internal/pkg/errors"
	"invoice-generator/internal/pkg/response"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Store decides whether key may make another request.
type Store interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Name() string
}

// MemoryStore keeps one token bucket per key in process memory.
type MemoryStore struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu        sync.Mutex
	limiters  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryStore(cfg config.RateLimitConfig) *MemoryStore {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryStore{
		limit:    rate.Limit(float64(cfg.PerMinute) / window.Seconds()),
		burst:    burst,
		idle:     3 * window,
		limiters: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Allow(_ context.Context, key string) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	v, ok := s.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	tokens := v.limiter.TokensAt(now)

	reset := now
	if tokens < 1 {
		reset = now.Add(time.Duration((1 - tokens) / float64(s.limit) * float64(time.Second)))
	}
	return Decision{
		Allowed:   allowed,
		Limit:     s.burst,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		Reset:     reset,
	}, nil
}

// sweep drops idle buckets at most once per idle period.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.idle {
		return
	}
	s.lastSweep = now
	for key, v := range s.limiters {
		if now.Sub(v.lastSeen) > s.idle {
			delete(s.limiters, key)
		}
	}
}

// Counter is implemented by cache.WindowCounter.
type Counter interface {
	Hit(ctx context.Context, key string) (int64, time.Duration, error)
}

// RedisStore allows PerMinute hits per fixed window, shared by every API instance.
type RedisStore struct {
	counter Counter
	limit   int
	now     func() time.Time
}

func NewRedisStore(counter Counter, cfg config.RateLimitConfig) *RedisStore {
	return &RedisStore{counter: counter, limit: cfg.PerMinute, now: time.Now}
}

// NewRedisStoreFromClient wires a RedisStore over a live Redis client.
func NewRedisStoreFromClient(client cache.Client, cfg config.RateLimitConfig) *RedisStore {
	return NewRedisStore(cache.NewWindowCounter(client, "ratelimit:", cfg.Window), cfg)
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := s.counter.Hit(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	remaining := s.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(s.limit),
		Limit:     s.limit,
		Remaining: remaining,
		Reset:     s.now().Add(ttl),
	}, nil
}

type RateLimiter struct {
	store   Store
	trusted []netip.Prefix
	log     *logrus.Logger
	metrics *metrics.Metrics
}

// NewRateLimiter keys requests by client IP. X-Forwarded-For is only read when
// the connection comes from one of the trusted proxies.
func NewRateLimiter(store Store, trusted []netip.Prefix, log *logrus.Logger, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{store: store, trusted: trusted, log: log, metrics: m}
}

// RateLimit limits requests per client IP. Store failures let the request through.
func (rl *RateLimiter) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r, rl.trusted)

		d, err := rl.store.Allow(r.Context(), key)
		if err != nil {
			rl.log.WithError(err).WithFields(logrus.Fields{
				"store": rl.store.Name(),
				"ip":    key,
			}).Warn("Rate limit store unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			if rl.metrics != nil {
				rl.metrics.RateLimited.WithLabelValues(rl.store.Name()).Inc()
			}
			retry := int(math.Ceil(time.Until(d.Reset).Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			response.Message(w, http.StatusTooManyRequests, apperrors.ErrRateLimited.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the connection address unless it belongs to a trusted
// proxy, in which case it walks X-Forwarded-For from the right and returns the
// first hop that is not itself trusted.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	remote := remoteIP(r)
	if len(trusted) == 0 || !isTrusted(remote, trusted) {
		return remote
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	client := remote
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			// Anything left of a malformed hop was written by the client.
			break
		}
		client = addr.Unmap().String()
		if !isTrusted(client, trusted) {
			break
		}
	}
	return client
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
