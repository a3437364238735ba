package httpmiddleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver receives one observation per request.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, d time.Duration)
}

// Metrics reports request latency labelled with the matched route pattern.
// Unmatched requests are reported under "unmatched".
func Metrics(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		obs.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
