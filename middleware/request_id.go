package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextRequestIDKey stores the per-request correlation id in Gin context.
const ContextRequestIDKey = "request_id"

// RequestID attaches a correlation id to every request, honoring an
// X-Request-ID supplied by a trusted proxy.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rid := ctx.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx.Set(ContextRequestIDKey, rid)
		ctx.Writer.Header().Set("X-Request-ID", rid)
		ctx.Next()
	}
}
