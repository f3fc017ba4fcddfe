package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex

	// Alerting tools fire at most a handful of signals per minute; anything
	// past this is a misconfigured alert or abuse.
	webhookLimit = rate.Limit(30.0 / 60.0) // 30 requests per minute
	webhookBurst = 5
)

// Cleanup old visitors periodically
func init() {
	go cleanupVisitors()
}

func getLimiter(clientIP string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, exists := visitors[clientIP]
	if !exists {
		v = &visitor{
			limiter:  rate.NewLimiter(webhookLimit, webhookBurst),
			lastSeen: time.Now(),
		}
		visitors[clientIP] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for ip, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, ip)
			}
		}
		mu.Unlock()
	}
}

// RateLimit throttles webhook callers per client IP.
func RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := getLimiter(c.ClientIP())
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
