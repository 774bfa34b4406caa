package v1

import (
	"net/http"
	"time"

	logicv1 "github.com/duynhne/user-web/internal/logic/v1"
	"github.com/duynhne/user-web/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionKey = "session"

// SessionMiddleware resolves the browser's session from its cookie, creating
// one when the cookie is missing or the session expired. The session is
// stored in the gin context for handlers.
func SessionMiddleware(store *logicv1.SessionStore, cookieName string, ttl time.Duration) gin.HandlerFunc {
	maxAge := int(ttl / time.Second)
	return func(c *gin.Context) {
		var sess *logicv1.Session
		if id, err := c.Cookie(cookieName); err == nil && id != "" {
			sess, _ = store.Get(id)
		}
		if sess == nil {
			sess = store.Create()
			middleware.GetLoggerFromGinContext(c).Debug("Session created", zap.String("session_id", sess.ID))
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, sess.ID, maxAge, "/", "", false, true)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// sessionFrom returns the session set by SessionMiddleware.
func sessionFrom(c *gin.Context) *logicv1.Session {
	return c.MustGet(sessionKey).(*logicv1.Session)
}
