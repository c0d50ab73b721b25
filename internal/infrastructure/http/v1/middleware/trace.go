package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	appctx "backoffice/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace puts request and trace ids on the request context and echoes them
// in the response headers. An active otel span wins over X-Trace-ID.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tc := &appctx.TraceContext{
			RequestID: c.GetHeader(HeaderRequestID),
			TraceID:   c.GetHeader(HeaderTraceID),
		}
		if tc.RequestID == "" {
			tc.RequestID = uuid.NewString()
		}

		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			tc.TraceID, tc.SpanID = sc.TraceID().String(), sc.SpanID().String()
		} else {
			if tc.TraceID == "" {
				tc.TraceID = uuid.NewString()
			}
			tc.SpanID = uuid.NewString()[:16]
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, tc))
		c.Set("trace_id", tc.TraceID)
		c.Set("request_id", tc.RequestID)
		c.Header(HeaderRequestID, tc.RequestID)
		c.Header(HeaderTraceID, tc.TraceID)

		c.Next()
	}
}
