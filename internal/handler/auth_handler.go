package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todolist/internal/service/auth"
)

type AuthHandler struct {
	auth   *auth.Service
	logger *zap.Logger
}

func NewAuthHandler(authService *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, logger: logger}
}

type credentials struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Landing handles GET /.
func (h *AuthHandler) Landing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":  "todolist",
		"login": RedirectLogin,
	})
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBind(&req); err != nil {
		respondFlash(c, http.StatusBadRequest, LevelError, auth.MsgInvalidFields, "")
		return
	}

	u, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err, "")
		return
	}

	h.logger.Info("User registered", zap.Int("user_id", u.ID))
	c.JSON(http.StatusCreated, gin.H{
		"user":  u,
		"flash": Flash{Level: LevelSuccess, Message: auth.MsgRegistered, Redirect: RedirectLogin},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBind(&req); err != nil {
		respondFlash(c, http.StatusBadRequest, LevelError, auth.MsgInvalidFields, RedirectLogin)
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err, RedirectLogin)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"redirect": RedirectHome,
	})
}
