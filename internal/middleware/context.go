package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/RoberAF/chatbot/internal/constants"
	ctxutil "github.com/RoberAF/chatbot/pkg/context"
	"github.com/RoberAF/chatbot/pkg/logger"
)

// ContextMiddleware attaches request tracking information (request id,
// client ip, user agent, start time) to the request context so every log
// line downstream carries it.
func ContextMiddleware(module string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, module, c.Request.URL.Path)
		c.Request = c.Request.WithContext(ctx)

		c.Writer.Header().Set(constants.HeaderXRequestID, ctxutil.GetRequestID(ctx))

		logger.DebugWithContext(ctx, "Request started").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Log()

		c.Next()

		logger.InfoWithContext(ctx, "Request completed").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Int("status_code", c.Writer.Status()).
			Int("response_size", c.Writer.Size()).
			Duration(ctxutil.GetDuration(ctx)).
			Log()
	}
}
