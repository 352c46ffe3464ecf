package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/fintrackapp/auth-service/internal/domain"
	"github.com/fintrackapp/auth-service/internal/dto"
	"github.com/fintrackapp/auth-service/internal/service"
)

// refreshCookiePath covers refresh and logout so the browser sends the cookie
// to both endpoints and nowhere else.
const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler handles authentication and session requests
type AuthHandler struct {
	authService    service.AuthService
	sessionService service.SessionService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, sessionService service.SessionService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
	}
}

func clientMeta(c *gin.Context) domain.ClientMeta {
	return domain.ClientMeta{
		IP:         c.ClientIP(),
		DeviceInfo: c.Request.UserAgent(),
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, result *service.AuthResult) {
	c.SetCookie(refreshCookieName, result.RefreshToken, result.RefreshExpiresIn, refreshCookiePath, "", true, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", true, true)
}

// Register handles user registration
// @Summary Register a new user
// @Description Register a new user in the system
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		if err == service.ErrEmailTaken {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: err.Error(),
		})
		return
	}

	h.setRefreshCookie(c, result)
	c.JSON(http.StatusCreated, result.AuthResponse)
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 423 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req, clientMeta(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	c.JSON(http.StatusOK, result.AuthResponse)
}

// Refresh handles token rotation
// @Summary Refresh tokens
// @Description Rotate the refresh token and mint a new access token
// @Tags auth
// @Produce json
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Refresh token not found in cookie",
		})
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), refreshToken, clientMeta(c))
	if err != nil {
		h.clearRefreshCookie(c)
		writeServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	c.JSON(http.StatusOK, result.AuthResponse)
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the presented refresh token. Safe to repeat.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// Logout is deliberately unauthenticated: an expired access token must not
	// stop a client from getting rid of its refresh token.
	refreshToken, _ := c.Cookie(refreshCookieName)

	if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
		writeServiceError(c, err)
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// LogoutAll revokes every session of the authenticated user
// @Summary Logout everywhere
// @Description Revoke all refresh tokens and invalidate all access tokens
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.sessionService.RevokeAllSessions(c.Request.Context(), userID); err != nil {
		writeServiceError(c, err)
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "All sessions revoked",
	})
}

// GetMe handles getting current user profile
// @Summary Get current user profile
// @Description Get information about the current authenticated user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.authService.GetUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListSessions lists the caller's active sessions
// @Summary List active sessions
// @Description List all active sessions with the current one flagged
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {array} domain.SessionView
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/sessions [get]
func (h *AuthHandler) ListSessions(c *gin.Context) {
	views, err := h.sessionService.ListSessions(c.Request.Context(),
		c.GetString("user_id"), c.GetString("session_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// RevokeSession terminates one of the caller's other sessions
// @Summary Revoke a session
// @Description Terminate a single session by id. The current session cannot be
// revoked this way; use logout.
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/sessions/{id} [delete]
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	err := h.sessionService.RevokeSession(c.Request.Context(),
		c.GetString("user_id"), c.Param("id"), c.GetString("session_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Session revoked",
	})
}

// RequestEmailVerification issues a new email verification code
// @Summary Request email verification
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /auth/verify-email/request [post]
func (h *AuthHandler) RequestEmailVerification(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.authService.RequestEmailVerification(c.Request.Context(), req.Email, clientMeta(c)); err != nil {
		writeServiceError(c, err)
		return
	}

	// Same body whether or not the address is known.
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "If the address is registered, a verification code has been sent",
	})
}

// ConfirmEmailVerification consumes a verification code
// @Summary Confirm email verification
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/verify-email/confirm [post]
func (h *AuthHandler) ConfirmEmailVerification(c *gin.Context) {
	var req dto.ConfirmTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.authService.ConfirmEmailVerification(c.Request.Context(), req.Token); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Email verified",
	})
}

// RequestPasswordReset issues a new password reset code
// @Summary Request password reset
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /auth/password-reset/request [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email, clientMeta(c)); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "If the address is registered, a reset code has been sent",
	})
}

// ConfirmPasswordReset consumes a reset code and replaces the password
// @Summary Confirm password reset
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.authService.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Password changed, all sessions were signed out",
	})
}
