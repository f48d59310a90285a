package handler

import (
	"net/http"
	"strings"

	"github.com/GooseOb/pai2024/internal/middleware"
	"github.com/GooseOb/pai2024/internal/service"
	"github.com/GooseOb/pai2024/internal/session"
	"github.com/GooseOb/pai2024/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Auth         *service.AuthService
	CookieName   string
	SecureCookie bool
}

func NewAuthHandler(auth *service.AuthService, cookieName string, secure bool) *AuthHandler {
	return &AuthHandler{Auth: auth, CookieName: cookieName, SecureCookie: secure}
}

// loginReq accepts both "username" (passport-json style) and "login".
type loginReq struct {
	Username string `json:"username"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

// WhoAmI returns the logged-in person, or {} for anonymous callers.
func (h *AuthHandler) WhoAmI(c *gin.Context) {
	p := middleware.CurrentUser(c)
	if p == nil {
		util.JSON(c, http.StatusOK, gin.H{})
		return
	}
	util.JSON(c, http.StatusOK, p)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := bindBody(c, &req); err != nil {
		writeError(c, err)
		return
	}
	login := strings.TrimSpace(req.Username)
	if login == "" {
		login = strings.TrimSpace(req.Login)
	}

	ctx := c.Request.Context()
	p, token, err := h.Auth.Login(ctx, login, req.Password, session.Meta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		// a failed attempt leaves the current session alone
		writeError(c, err)
		return
	}
	if old := middleware.SessionToken(c); old != "" {
		_ = h.Auth.Logout(ctx, old)
	}
	h.setCookie(c, token, int(h.Auth.Sessions().TTL().Seconds()))
	util.JSON(c, http.StatusOK, p)
}

// Logout is idempotent.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		writeError(c, err)
		return
	}
	h.setCookie(c, "", -1)
	util.JSON(c, http.StatusOK, gin.H{})
}

// Sessions lists live sessions. Admins see every field; other callers see
// their own sessions in full and only the timestamps of the rest.
func (h *AuthHandler) Sessions(c *gin.Context) {
	out, err := h.Auth.ListSessions(c.Request.Context(), middleware.CurrentUser(c))
	respond(c, out, err)
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.CookieName, value, maxAge, "/", "", h.SecureCookie, true)
}
