package middleware

import "github.com/gin-gonic/gin"

// NoStore stops browsers and proxies from keeping exam content or session
// state, which would otherwise survive in shared caches after submission.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
