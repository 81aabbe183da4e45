package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/infrastructure/logger"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// MaxRequestIDLength is the longest client request id that is echoed back;
// longer ones are replaced by a generated uuid.
const MaxRequestIDLength = 128

// RequestID assigns every request an id, keeping a usable X-Request-ID from
// the client. Install it ahead of logger.GinMiddleware.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > MaxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(logger.GinRequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(logger.GinRequestIDKey)
}

// secureHeaders go on every response; ledger data is never cacheable
var secureHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Cache-Control", "no-store"},
}

func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range secureHeaders {
			c.Header(h[0], h[1])
		}
		c.Next()
	}
}
