package api

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/titanbreach/engine/internal/apperr"
	"github.com/titanbreach/engine/internal/auth"
)

const playerIDContextKey = "breach.playerID"

// corsMiddleware mirrors the teacher's origin allow-list approach,
// configured via ALLOWED_ORIGINS (comma-separated, "*" for any origin).
func corsMiddleware() gin.HandlerFunc {
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// sessionAuthMiddleware requires "Authorization: Bearer <token>", verifies
// it against sessions, and stashes the authenticated player ID in context.
func sessionAuthMiddleware(sessions auth.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(c, apperr.New(apperr.CodeUnauthorized, "missing or malformed Authorization header"))
			c.Abort()
			return
		}

		sess, err := auth.Verify(c.Request.Context(), sessions, parts[1], time.Now())
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(playerIDContextKey, sess.PlayerID)
		c.Next()
	}
}

// rateLimiter is a per-IP token-bucket limiter built on golang.org/x/time/rate
// (the same package the rest of the corpus reaches for, rather than a
// hand-rolled bucket).
type rateLimiter struct {
	rps     rate.Limit
	burst   int
	mu      sync.Mutex
	byIP    map[string]*rate.Limiter
}

func newRateLimiter(ratePerMin, burst int) *rateLimiter {
	return &rateLimiter{
		rps:   rate.Limit(float64(ratePerMin) / 60.0),
		burst: burst,
		byIP:  make(map[string]*rate.Limiter),
	}
}

func (rl *rateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.byIP[ip]
	if !ok {
		l = rate.NewLimiter(rl.rps, rl.burst)
		rl.byIP[ip] = l
	}
	return l
}

// Middleware returns a gin handler enforcing the per-IP rate.
func (rl *rateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			respondError(c, apperr.New(apperr.CodeRateLimited, "rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}
