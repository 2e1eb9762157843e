package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimiterConfig sets the per-client budget for a route group.
type RateLimiterConfig struct {
	// Rate is how many requests per second a client earns back.
	Rate float64
	// Burst is how many requests a client that has been quiet may send at once.
	Burst int
	// IdleAfter drops clients that have been quiet this long with a full budget.
	IdleAfter time.Duration
	// Key names the client; the remote address when nil.
	Key func(c echo.Context) string
}

// DefaultRateLimiterConfig returns the limits applied to order placement.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:      10,
		Burst:     20,
		IdleAfter: time.Minute,
		Key:       clientIP,
	}
}

// budget is one client's remaining allowance, topped up lazily on use.
type budget struct {
	mu       sync.Mutex
	left     float64
	lastSeen time.Time
}

// spend tops the budget up for the time since it was last seen and takes
// one request from it. When nothing is left it returns how long until one
// request is available.
func (b *budget) spend(now time.Time, rate float64, burst int) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.left = math.Min(float64(burst), b.left+now.Sub(b.lastSeen).Seconds()*rate)
	b.lastSeen = now
	if b.left >= 1 {
		b.left--
		return true, 0
	}
	return false, time.Duration((1 - b.left) / rate * float64(time.Second))
}

// RateLimiter keeps a budget per client in memory. Budgets of idle clients
// are swept in the background until Stop.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*budget

	done     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Key == nil {
		config.Key = clientIP
	}
	if config.IdleAfter <= 0 {
		config.IdleAfter = time.Minute
	}
	rl := &RateLimiter{
		config:  config,
		now:     time.Now,
		clients: make(map[string]*budget),
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow spends one request from key's budget.
func (rl *RateLimiter) Allow(key string) bool {
	ok, _ := rl.allow(key)
	return ok
}

func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.clients[key]
	if !ok {
		b = &budget{left: float64(rl.config.Burst), lastSeen: now}
		rl.clients[key] = b
	}
	rl.mu.Unlock()

	return b.spend(now, rl.config.Rate, rl.config.Burst)
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.config.IdleAfter)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

// sweep forgets clients whose budget would be full and who have not been
// seen for IdleAfter. Forgetting them loses nothing.
func (rl *RateLimiter) sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.clients {
		b.mu.Lock()
		idle := now.Sub(b.lastSeen)
		full := b.left+idle.Seconds()*rl.config.Rate >= float64(rl.config.Burst)
		if full && idle > rl.config.IdleAfter {
			delete(rl.clients, key)
		}
		b.mu.Unlock()
	}
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Middleware answers 429 with Retry-After, in whole seconds, once a client
// has spent its budget.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, wait := rl.allow(rl.config.Key(c))
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
			}
			return next(c)
		}
	}
}

// clientIP uses echo's extractor, which honours X-Forwarded-For and
// X-Real-IP only as configured on the server's IPExtractor.
func clientIP(c echo.Context) string {
	return c.RealIP()
}
