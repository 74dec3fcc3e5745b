package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RichardoC/chatbox/internal/auth"
)

const (
	SessionCookie = "chatbox.session_token"

	userKey = "user"
)

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	Session *auth.Session `json:"session"`
	User    *auth.User    `json:"user"`
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", h.secureCookie, true)
}

func (h *Handler) startSession(c *gin.Context, email, password string, status int) {
	session, user, err := h.auth.SignIn(c.Request.Context(), email, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "failed to sign in", err)
		return
	}

	h.setSessionCookie(c, session.Token, h.sessionTTL)
	c.JSON(status, SessionResponse{Session: session, User: user})
}

func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.Name)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.internalError(c, "failed to sign up", err)
		return
	}

	h.startSession(c, req.Email, req.Password, http.StatusCreated)
}

func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest
	if !bindJSON(c, &req) {
		return
	}
	h.startSession(c, req.Email, req.Password, http.StatusOK)
}

func (h *Handler) SignOut(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		if err := h.auth.SignOut(c.Request.Context(), token); err != nil {
			h.internalError(c, "failed to sign out", err)
			return
		}
	}
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSession answers null when there is no valid session.
func (h *Handler) GetSession(c *gin.Context) {
	token, _ := c.Cookie(SessionCookie)
	session, user, found, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		h.internalError(c, "failed to get session", err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{Session: session, User: user})
}

// RequireSession rejects requests without a valid session cookie.
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.auth == nil {
			c.Next()
			return
		}

		token, _ := c.Cookie(SessionCookie)
		_, user, found, err := h.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.internalError(c, "failed to check session", err)
			c.Abort()
			return
		}
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		h.logger.Debug("authenticated request", zap.String("userID", user.ID))
		c.Set(userKey, user)
		c.Next()
	}
}
