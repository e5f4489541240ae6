package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"cineticket/internal/shared/utils/response"
	"cineticket/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware rejects requests over the budget of their route's limit type.
// A Redis failure lets the request through.
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		limitType := getRateLimitType(c.Request.Method, c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			logger.GetDefault().ErrorWithContext(c.Request.Context(), "rate limit check failed", err, map[string]interface{}{
				"ip":         clientIP,
				"limit_type": string(limitType),
			})
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime))

		if !result.Allowed {
			logger.GetDefault().LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			response.RespondJSON(c, "error", http.StatusTooManyRequests,
				"Rate limit exceeded", nil, map[string]interface{}{
					"limit":      result.Limit,
					"reset_time": result.ResetTime,
				})
			c.Abort()
			return
		}

		c.Next()
	}
}

// getRateLimitType classifies a route. Order matters: the first match wins.
func getRateLimitType(method, path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"):
		return RateLimitTypeHealth

	// Provider callbacks arrive in bursts from a few addresses
	case strings.Contains(path, "/payments/momo/"):
		return RateLimitTypePaymentCallback

	case strings.Contains(path, "/staff/"):
		return RateLimitTypeCheckIn

	case strings.Contains(path, "/admin/"):
		return RateLimitTypeAdmin

	// Writes that take seats or money
	case strings.HasSuffix(path, "/holds"),
		method == http.MethodPost && strings.HasSuffix(path, "/orders"),
		strings.HasSuffix(path, "/payments") && method == http.MethodPost,
		strings.HasSuffix(path, "/cancel"):
		return RateLimitTypeBookingCritical

	case strings.Contains(path, "/orders"),
		strings.HasSuffix(path, "/seats"):
		return RateLimitTypeBooking

	case strings.Contains(path, "/users/"):
		return RateLimitTypeUser

	case strings.Contains(path, "/showtimes"),
		strings.Contains(path, "/movies"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}

// getClientIP extracts the real client IP
func getClientIP(c *gin.Context) string {
	xForwardedFor := c.GetHeader("X-Forwarded-For")
	if xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		ip := strings.TrimSpace(ips[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	xRealIP := c.GetHeader("X-Real-IP")
	if xRealIP != "" && net.ParseIP(xRealIP) != nil {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
