package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/service"
	"github.com/GooseOb/pai2024/internal/util"

	"github.com/gin-gonic/gin"
)

const (
	currentUserKey  = "currentUser"
	sessionTokenKey = "sessionToken"
)

// Authenticate resolves the session cookie and, when it names a live
// session, puts the (freshly loaded) person into the context. It never
// rejects a request; RequireRole does that. A session that cannot be read
// leaves the request anonymous.
func Authenticate(auth *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}
		c.Set(sessionTokenKey, token)

		p, err := auth.WhoAmI(c.Request.Context(), token)
		if err != nil {
			log.Printf("resolve session, continuing as anonymous: %v", err)
		} else if p != nil {
			c.Set(currentUserKey, p)
		}
		c.Next()
	}
}

// RequireRole lets the request through only for a logged-in person holding
// one of roles: 401 without a session, 403 with the wrong role.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := service.CheckRole(CurrentUser(c), roles...)
		if err == nil {
			c.Next()
			return
		}
		status, msg := http.StatusForbidden, "forbidden"
		var se *service.Error
		if errors.As(err, &se) {
			msg = se.Message
			if se.Kind == service.KindUnauthorized {
				status = http.StatusUnauthorized
			}
		}
		util.Abort(c, status, msg)
	}
}

// CurrentUser returns the person set by Authenticate, or nil.
func CurrentUser(c *gin.Context) *models.Person {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Person)
	return p
}

// SessionToken returns the raw session cookie seen by Authenticate.
func SessionToken(c *gin.Context) string {
	return c.GetString(sessionTokenKey)
}
