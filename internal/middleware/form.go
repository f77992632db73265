package middleware

import (
	"ppe_inspection/internal/service"

	"github.com/gin-gonic/gin"
)

const sessionKey = "formSession"

// FormSession resolves the :token path parameter to an open form session.
// Links that are malformed, unknown, expired or already answered are
// answered by onError and the chain stops.
func FormSession(sessions *service.SessionService, onError func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Open(c.Request.Context(), c.Param("token"))
		if err != nil {
			onError(c, err)
			c.Abort()
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// SessionFromContext returns the session set by FormSession.
func SessionFromContext(c *gin.Context) *service.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*service.Session)
	return sess
}
