// Package middleware contains gin middleware for the server's HTTP
// surface.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderXCorrelationID is the header a client may supply its own
// correlation id in; the same header carries it back on the response.
const HeaderXCorrelationID = "X-Correlation-ID"

// contextKey is where the request's correlation id lives in the gin
// context.
const contextKey = "correlation_id"

// CorrelationID tags every request with a correlation id. The id outlives
// the HTTP exchange: the upgrade handler hands it to the Session it
// births, so a stream's whole lifetime of log lines traces back to the
// request that opened it.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderXCorrelationID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderXCorrelationID, id)
		c.Set(contextKey, id)
		c.Next()
	}
}

// FromContext returns the request's correlation id. A request that did not
// pass through CorrelationID (direct handler tests, bare routers) gets a
// fresh id so downstream sessions are never left untagged.
func FromContext(c *gin.Context) string {
	if id := c.GetString(contextKey); id != "" {
		return id
	}
	return uuid.NewString()
}
