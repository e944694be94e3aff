package middleware

import "github.com/gin-gonic/gin"

// NoStore marks every response as uncacheable. Headers are set before the
// handler runs so redirects, errors and unmatched routes carry them too.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, post-check=0, pre-check=0, max-age=0")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "-1")
		c.Next()
	}
}
