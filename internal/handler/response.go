package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todolist/internal/apperr"
	"todolist/internal/model"
	"todolist/internal/service/task"
	"todolist/pkg/logger"
)

// Flash levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Where the client should go after a flash.
const (
	RedirectHome            = "/home/"
	RedirectNewTask         = "/tasks/new/"
	RedirectPassword        = "/password/"
	RedirectPasswordReset   = "/password/reset/"
	RedirectLogin           = "/auth/login/"
	RedirectLoginAfterReset = "/auth/login/?login_info=5"
)

// PrincipalKey is the gin context key the auth middleware stores the caller under.
const PrincipalKey = "principal"

// Flash is the one-shot message returned by every state-changing action.
type Flash struct {
	Level    string `json:"level"`
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// CurrentPrincipal returns the authenticated caller or nil.
func CurrentPrincipal(c *gin.Context) *model.Principal {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*model.Principal)
	return p
}

func respondFlash(c *gin.Context, status int, level, message, redirect string) {
	c.JSON(status, gin.H{
		"flash": Flash{Level: level, Message: message, Redirect: redirect},
	})
}

// respondError renders err as an error flash. Only system failures are
// logged; their cause never reaches the client.
func respondError(c *gin.Context, log *zap.Logger, err error, redirect string) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.WithTrace(c.Request.Context(), log).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	respondFlash(c, status, LevelError, apperr.Message(err), redirect)
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondFlash(c, http.StatusNotFound, LevelError, task.MsgNotFound, RedirectHome)
		return 0, false
	}
	return id, true
}
