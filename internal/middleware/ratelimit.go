package middleware

import (
	"container/list"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	numShards          = 32
	maxBucketsPerShard = 4096
	cleanupInterval    = 30 * time.Second
	bucketExpiry       = 5 * time.Minute
)

type ProxyTrust int

const (
	TrustNone ProxyTrust = iota
	TrustCloudflare
	TrustProxy
	TrustAll
)

func ParseProxyTrust(s string) ProxyTrust {
	switch s {
	case "cloudflare":
		return TrustCloudflare
	case "proxy":
		return TrustProxy
	case "all":
		return TrustAll
	default:
		return TrustNone
	}
}

type RateLimitConfig struct {
	RequestsPerMinute int
	BurstLimit        int
	ProxyTrust        ProxyTrust
	KeyGenerator      func(*fiber.Ctx) string
	Now               func() time.Time
}

type bucket struct {
	key        string
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
	element    *list.Element
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	lru     *list.List
}

// RateLimiter is a token bucket per client key, sharded to keep lock
// contention low, with LRU eviction and a background sweep of idle buckets.
type RateLimiter struct {
	cfg        RateLimitConfig
	refillRate float64
	shards     [numShards]*shard

	lifecycle sync.Mutex
	stopCh    chan struct{}
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.BurstLimit <= 0 {
		cfg.BurstLimit = cfg.RequestsPerMinute
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = keyGenerator(cfg.ProxyTrust)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	rl := &RateLimiter{cfg: cfg, refillRate: float64(cfg.RequestsPerMinute) / 60.0}
	for i := range rl.shards {
		rl.shards[i] = &shard{buckets: make(map[string]*bucket), lru: list.New()}
	}
	return rl
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, remaining, resetIn := rl.take(rl.cfg.KeyGenerator(c))

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.cfg.RequestsPerMinute))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetIn))

		if !allowed {
			c.Set("Retry-After", fmt.Sprintf("%d", resetIn))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Rate limit exceeded",
			})
		}
		return c.Next()
	}
}

func keyGenerator(trust ProxyTrust) func(*fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		ip := c.IP()

		switch trust {
		case TrustCloudflare:
			if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
				ip = cfIP
			}
		case TrustProxy:
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				ip = realIP
			}
		case TrustAll:
			if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
				ip = cfIP
			} else if realIP := c.Get("X-Real-IP"); realIP != "" {
				ip = realIP
			}
		}

		return ip + ":" + c.Method() + ":" + c.Path()
	}
}

func (rl *RateLimiter) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return rl.shards[h.Sum32()%numShards]
}

func (rl *RateLimiter) take(key string) (allowed bool, remaining int, resetIn int) {
	s := rl.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := rl.cfg.Now()
	burst := float64(rl.cfg.BurstLimit)

	b, ok := s.buckets[key]
	if !ok {
		if len(s.buckets) >= maxBucketsPerShard {
			s.evictOldest()
		}
		b = &bucket{key: key, tokens: burst, lastRefill: now}
		b.element = s.lru.PushFront(b)
		s.buckets[key] = b
	} else {
		s.lru.MoveToFront(b.element)
	}

	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+elapsed*rl.refillRate, burst)
		b.lastRefill = now
	}
	b.lastAccess = now

	if b.tokens < burst {
		resetIn = int((burst - b.tokens) / rl.refillRate)
	}
	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true, int(b.tokens), resetIn
	}
	return false, 0, int(1.0/rl.refillRate) + 1
}

func (s *shard) evictOldest() {
	if oldest := s.lru.Back(); oldest != nil {
		b := oldest.Value.(*bucket)
		s.lru.Remove(oldest)
		delete(s.buckets, b.key)
	}
}

// StartCleanup runs the idle-bucket sweep until StopCleanup.
func (rl *RateLimiter) StartCleanup() {
	rl.lifecycle.Lock()
	defer rl.lifecycle.Unlock()
	if rl.stopCh != nil {
		return
	}
	rl.stopCh = make(chan struct{})
	go rl.cleanupWorker(rl.stopCh)
}

func (rl *RateLimiter) StopCleanup() {
	rl.lifecycle.Lock()
	defer rl.lifecycle.Unlock()
	if rl.stopCh == nil {
		return
	}
	close(rl.stopCh)
	rl.stopCh = nil
}

func (rl *RateLimiter) cleanupWorker(stop <-chan struct{}) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := rl.cfg.Now()
	for _, s := range rl.shards {
		s.mu.Lock()
		for e := s.lru.Back(); e != nil; {
			b := e.Value.(*bucket)
			if now.Sub(b.lastAccess) <= bucketExpiry {
				break
			}
			prev := e.Prev()
			s.lru.Remove(e)
			delete(s.buckets, b.key)
			e = prev
		}
		s.mu.Unlock()
	}
}

func (rl *RateLimiter) BucketCount() int {
	total := 0
	for _, s := range rl.shards {
		s.mu.Lock()
		total += len(s.buckets)
		s.mu.Unlock()
	}
	return total
}
