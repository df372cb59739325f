package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/finboard/internal/application"
	"github.com/oksasatya/finboard/internal/interface/middleware"
	"github.com/oksasatya/finboard/pkg/helpers"
	"github.com/oksasatya/finboard/pkg/response"
	"github.com/oksasatya/finboard/pkg/validation"
)

type AuthHandler struct {
	Svc     *application.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, cookies *helpers.Manager) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

// No binding tags: a missing field is a denial like any other, not a 400.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,jwt"`
}

type dashboardResponse struct {
	Role string `json:"role"`
	View string `json:"view"`
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.RemoteIP()
}

// withAttemptMeta stores the caller details on the request context for audit records.
func withAttemptMeta(c *gin.Context) {
	meta := application.AttemptMeta{
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		RequestID: c.GetString("request_id"),
	}
	c.Request = c.Request.WithContext(application.WithAttemptMeta(c.Request.Context(), meta))
}

func tokenMeta(res *application.LoginResult) map[string]any {
	return map[string]any{
		"access_expires_at":  res.Tokens.AccessTokenExpiry,
		"refresh_expires_at": res.Tokens.RefreshTokenExpiry,
	}
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	// an empty body carries no credentials, same as {}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	withAttemptMeta(c)
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, application.ErrInvalidCredentials.Error(), nil)
		return
	}
	h.Cookies.SetPair(c, res.Tokens.AccessToken, res.Tokens.AccessTokenExpiry, res.Tokens.RefreshToken, res.Tokens.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, res.Session, "login successful", tokenMeta(res))
}

// Refresh POST /api/refresh. The refresh token comes from its cookie or, for
// non-browser clients, the JSON body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(helpers.RefreshCookie)
	if err != nil || token == "" {
		var req refreshRequest
		if bErr := c.ShouldBindJSON(&req); bErr != nil {
			response.Error[any](c, http.StatusUnauthorized, "missing refresh token", validation.ToDetails(bErr))
			return
		}
		token = req.RefreshToken
	}

	res, err := h.Svc.Refresh(c.Request.Context(), token)
	if err != nil {
		h.Cookies.Clear(c)
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, res.Tokens.AccessToken, res.Tokens.AccessTokenExpiry, res.Tokens.RefreshToken, res.Tokens.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, res.Session, "token refreshed", tokenMeta(res))
}

// Logout POST /api/logout. Tokens stay valid until they expire; only the cookies go.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}

// Session GET /api/session
func (h *AuthHandler) Session(c *gin.Context) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, application.ErrUnauthenticated.Error(), nil)
		return
	}
	response.Success(c, http.StatusOK, s, "ok", nil)
}

// Dashboard GET /api/dashboard returns which dashboard variant the UI should render.
func (h *AuthHandler) Dashboard(c *gin.Context) {
	s, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, application.ErrUnauthenticated.Error(), nil)
		return
	}
	role := s.User.Role.OrDefault()
	response.Success(c, http.StatusOK, dashboardResponse{Role: role.String(), View: application.DashboardPath(role)}, "ok", nil)
}
