package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todolist/internal/apperr"
	"todolist/internal/service/account"
	"todolist/internal/service/auth"
)

type AccountHandler struct {
	accounts *account.Service
	auth     *auth.Service
	logger   *zap.Logger
}

func NewAccountHandler(accounts *account.Service, authService *auth.Service, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, auth: authService, logger: logger}
}

type passwordForm struct {
	Username        string `form:"nome" json:"nome"`
	NewPassword     string `form:"senha_nova" json:"senha_nova"`
	ConfirmPassword string `form:"confirmar_senha" json:"confirmar_senha"`
}

// ChangePasswordForm handles GET /password.
func (h *AccountHandler) ChangePasswordForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fields": []string{"senha_nova", "confirmar_senha"},
		"action": "/password",
	})
}

// ChangePassword handles POST /password. The response carries a fresh token
// because tokens issued before the change stop working.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req passwordForm
	if err := c.ShouldBind(&req); err != nil {
		respondFlash(c, http.StatusBadRequest, LevelError, account.MsgInvalidFields, RedirectPassword)
		return
	}

	actor := CurrentPrincipal(c)
	if _, err := h.accounts.ChangePassword(c.Request.Context(), actor, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(c, h.logger, err, RedirectPassword)
		return
	}

	token, err := h.auth.IssueToken(actor)
	if err != nil {
		h.logger.Warn("Password changed but no fresh token issued",
			zap.Int("user_id", actor.UserID),
			zap.Error(err),
		)
		token = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"flash": Flash{Level: LevelSuccess, Message: account.MsgChanged, Redirect: RedirectHome},
	})
}

// ResetPasswordForm handles GET /password/reset.
func (h *AccountHandler) ResetPasswordForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fields": []string{"nome", "senha_nova", "confirmar_senha"},
		"action": "/password/reset",
	})
}

// ResetPassword handles POST /password/reset for logged-out users. An
// unknown username is answered exactly like a failed save.
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req passwordForm
	if err := c.ShouldBind(&req); err != nil {
		respondFlash(c, http.StatusBadRequest, LevelError, account.MsgInvalidFields, RedirectPasswordReset)
		return
	}

	_, err := h.accounts.ChangePasswordByUsername(c.Request.Context(), req.Username, req.NewPassword, req.ConfirmPassword)
	if apperr.IsNotFound(err) {
		respondFlash(c, http.StatusInternalServerError, LevelError, apperr.Message(err), RedirectPasswordReset)
		return
	}
	if err != nil {
		respondError(c, h.logger, err, RedirectPasswordReset)
		return
	}

	respondFlash(c, http.StatusOK, LevelSuccess, account.MsgChanged, RedirectLoginAfterReset)
}
