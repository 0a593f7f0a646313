package auth

import (
	"errors"
	"net/http"

	"blogapi/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts /auth on rg. requireAuth guards logout and profile.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh-token", h.RefreshToken)

		authGroup.POST("/logout", requireAuth, h.Logout)
		authGroup.GET("/profile", requireAuth, h.Profile)
	}
}

// Register creates a new author account.
// @Summary		Register
// @Tags		Auth
// @Param		request	body	RegisterRequest	true	"email, password, optional name"
// @Success		201	{object}	map[string]interface{}	"message, user"
// @Failure		400	{object}	map[string]interface{}	"missing email or password"
// @Failure		409	{object}	map[string]interface{}	"email already registered"
// @Failure		500	{object}	map[string]interface{}
// @Router		/auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrValidation, "Registration failed")
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Registration failed")
		return
	}

	response.Success(c, http.StatusCreated, "User registered successfully", gin.H{
		"user": NewUserPublic(user),
	})
}

// Login exchanges credentials for an access/refresh token pair.
// @Summary		Login
// @Tags		Auth
// @Param		request	body	LoginRequest	true	"email, password"
// @Success		200	{object}	map[string]interface{}	"message, user, tokens"
// @Failure		400	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}	"invalid email or password"
// @Failure		500	{object}	map[string]interface{}
// @Router		/auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrValidation, "Login failed")
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Login failed")
		return
	}

	response.Success(c, http.StatusOK, "Login successful", gin.H{
		"user":   NewUserPublic(result.User),
		"tokens": result.Tokens,
	})
}

// RefreshToken rotates a refresh token into a new pair. The presented token is spent either way.
// @Summary		Refresh tokens
// @Tags		Auth
// @Param		request	body	RefreshRequest	true	"refreshToken"
// @Success		200	{object}	map[string]interface{}	"message, user, tokens"
// @Failure		400	{object}	map[string]interface{}	"missing refresh token"
// @Failure		401	{object}	map[string]interface{}	"invalid or expired refresh token"
// @Router		/auth/refresh-token [POST]
func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errRefreshTokenRequired, "Token refresh failed")
		return
	}

	result, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err, "Token refresh failed")
		return
	}

	response.Success(c, http.StatusOK, "Token refreshed successfully", gin.H{
		"user":   NewUserPublic(result.User),
		"tokens": result.Tokens,
	})
}

// Logout revokes all refresh tokens of the caller.
// @Summary		Logout
// @Tags		Auth
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}	"message"
// @Failure		401	{object}	map[string]interface{}
// @Failure		403	{object}	map[string]interface{}
// @Failure		500	{object}	map[string]interface{}
// @Router		/auth/logout [POST]
func (h *Handler) Logout(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		writeError(c, err, "Logout failed")
		return
	}

	response.Success(c, http.StatusOK, "Logged out successfully", nil)
}

// Profile echoes the identity carried by the access token.
// @Summary		Current user
// @Tags		Auth
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}	"user: id, email"
// @Failure		401	{object}	map[string]interface{}
// @Failure		403	{object}	map[string]interface{}
// @Router		/auth/profile [GET]
func (h *Handler) Profile(c *gin.Context) {
	response.Success(c, http.StatusOK, "", gin.H{
		"user": gin.H{
			"id":    c.GetString("user_id"),
			"email": c.GetString("email"),
		},
	})
}

// writeError is the only place that maps an error kind to a status code.
// fallback replaces the message of unexpected errors.
func writeError(c *gin.Context, err error, fallback string) {
	var e *Error
	errors.As(err, &e)

	switch KindOf(err) {
	case KindValidation:
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", e.Message)
	case KindDuplicateUser:
		response.Error(c, http.StatusConflict, "EMAIL_EXISTS", e.Message)
	case KindInvalidCredentials:
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", e.Message)
	case KindInvalidRefreshToken:
		response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", e.Message)
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}
