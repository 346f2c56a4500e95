package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/threadline/artifactd/internal/shared/id"
)

// RequestIDKey is the gin context key carrying the request identifier.
const RequestIDKey = "request_id"

// RequestIDHeader carries the identifier across service boundaries.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a req_* identifier for log correlation.
// An incoming header is propagated so callers can trace across services;
// anything without one gets a fresh ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" || !id.Valid(rid, id.RequestPrefix) {
			rid = id.NewRequestID()
		}
		c.Set(RequestIDKey, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}
