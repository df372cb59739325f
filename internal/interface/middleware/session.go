package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/finboard/internal/domain/entity"
	"github.com/oksasatya/finboard/pkg/helpers"
	"github.com/oksasatya/finboard/pkg/response"
)

const (
	CtxSessionKey = "session"
	CtxUserIDKey  = "userID"
)

// SessionResolver verifies an access token and projects the session view.
type SessionResolver interface {
	Session(accessToken string) (entity.SessionView, error)
}

// Session authenticates a request from its token alone. The token is read from
// the Authorization bearer header first, then the access_token cookie.
// Nothing is looked up server-side.
func Session(sr SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		view, err := sr.Session(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}
		c.Set(CtxSessionKey, view)
		c.Set(CtxUserIDKey, view.User.ID)
		c.Next()
	}
}

// SessionFrom returns the session set by Session.
func SessionFrom(c *gin.Context) (entity.SessionView, bool) {
	v, ok := c.Get(CtxSessionKey)
	if !ok {
		return entity.SessionView{}, false
	}
	s, ok := v.(entity.SessionView)
	return s, ok
}

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if t, err := c.Cookie(helpers.AccessCookie); err == nil {
		return t
	}
	return ""
}
