package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/storage/models"
	"github.com/launchpath/resource-engine/pkg/logger"
)

type bucket struct {
	mu         sync.Mutex
	tokens     int
	capacity   int
	refillRate time.Duration
	lastRefill time.Time
}

// Limiter applies token-bucket rate limiting per caller. Callers are keyed
// by X-User-ID when present, otherwise by client IP, and paid tiers get a
// larger bucket since recommendation fan-out is their main usage pattern.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	freeLimit int
	paidLimit int
	window    time.Duration

	cleanupTicker *time.Ticker
}

type Config struct {
	FreeRequestsPerMinute int
	PaidRequestsPerMinute int
	Window                time.Duration
}

func New(cfg Config) *Limiter {
	if cfg.FreeRequestsPerMinute <= 0 {
		cfg.FreeRequestsPerMinute = 60
	}
	if cfg.PaidRequestsPerMinute <= 0 {
		cfg.PaidRequestsPerMinute = 240
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	l := &Limiter{
		buckets:       make(map[string]*bucket),
		freeLimit:     cfg.FreeRequestsPerMinute,
		paidLimit:     cfg.PaidRequestsPerMinute,
		window:        cfg.Window,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	go l.cleanup()

	return l
}

func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if userID := c.Get("X-User-ID"); userID != "" {
			key = userID
		}

		limit := l.freeLimit
		tier := models.Tier(c.Get("X-User-Tier"))
		if tier == models.TierPro || tier == models.TierEnterprise {
			limit = l.paidLimit
		}

		if !l.allow(key, limit) {
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Path()),
				zap.String("tier", string(tier)),
			)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}

		return c.Next()
	}
}

func (l *Limiter) allow(key string, limit int) bool {
	l.mu.RLock()
	b, exists := l.buckets[key]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		b, exists = l.buckets[key]
		if !exists {
			b = &bucket{
				tokens:     limit,
				capacity:   limit,
				refillRate: l.window / time.Duration(limit),
				lastRefill: time.Now(),
			}
			l.buckets[key] = b
		}
		l.mu.Unlock()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	refilled := int(now.Sub(b.lastRefill) / b.refillRate)
	if refilled > 0 {
		b.tokens += refilled
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

func (l *Limiter) cleanup() {
	for range l.cleanupTicker.C {
		now := time.Now()
		l.mu.Lock()
		for key, b := range l.buckets {
			b.mu.Lock()
			stale := now.Sub(b.lastRefill) > 10*time.Minute
			b.mu.Unlock()
			if stale {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

func (l *Limiter) Stop() {
	l.cleanupTicker.Stop()
}
