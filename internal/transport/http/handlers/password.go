package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/config"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/security"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/usecase"
)

// PasswordHandler exposes the password change endpoint. It is deliberately not
// behind the session gate: the mandatory flow runs on a remedial session that
// is not yet authenticated.
type PasswordHandler struct {
	passwords *usecase.PasswordService
	sessions  port.SessionStore
	cfg       config.SessionSettings
	logger    *zap.Logger
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(passwords *usecase.PasswordService, sessions port.SessionStore, cfg config.SessionSettings, logger *zap.Logger) *PasswordHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordHandler{
		passwords: passwords,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger,
	}
}

var changePasswordCases = []ErrorCase{
	{Err: usecase.ErrConfirmationMismatch, Status: http.StatusBadRequest, Message: "password confirmation does not match"},
	{Err: usecase.ErrPolicyViolation, Status: http.StatusBadRequest, Message: "password does not satisfy the password policy"},
	{Err: usecase.ErrPasswordReused, Status: http.StatusBadRequest, Message: "password was used recently"},
	{Err: usecase.ErrInvalidOldPassword, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
	{Err: usecase.ErrNotAllowed, Status: http.StatusForbidden, Message: "operation not allowed"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "authentication required"},
}

// ChangePassword rotates the caller's password. A request carrying a token
// completes the mandatory change a deferred login demanded; without one the
// current password must attest a voluntary change.
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "new password and confirmation are required"))
		return
	}

	sessionID, err := c.Cookie(h.cfg.CookieName)
	if err != nil || sessionID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
			return
		}
		h.logger.Error("load session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	if req.Token != "" {
		h.changeMandatory(c, session, req)
		return
	}
	h.changeVoluntary(c, session, req)
}

// changeMandatory redeems the one-shot token minted when the login was
// deferred. A wrong token burns the remedial session outright; the session is
// also destroyed after a successful change, so the token cannot be replayed
// either way.
func (h *PasswordHandler) changeMandatory(c *gin.Context, session *domain.Session, req ChangePasswordRequest) {
	if !session.IsPendingChange() || !security.ConstantTimeEquals(req.Token, session.TempToken) {
		h.destroySession(c, session.ID)
		h.clearCookie(c)
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid or expired token"))
		return
	}

	userID, err := h.passwords.ChangeMandatory(c.Request.Context(), session.Username, req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		if isInternal(err) {
			h.logger.Error("mandatory password change failed", zap.Error(err))
		}
		RespondWithMappedError(c, err, changePasswordCases, http.StatusInternalServerError, "internal server error")
		return
	}
	h.logger.Info("mandatory password change completed", zap.Int64("user_id", userID))

	h.destroySession(c, session.ID)
	h.clearCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "password changed, please log in"})
}

func (h *PasswordHandler) changeVoluntary(c *gin.Context, session *domain.Session, req ChangePasswordRequest) {
	if !session.IsAuthenticated() {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	if req.OldPassword == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "current password is required"))
		return
	}

	userID := *session.UserID
	if err := h.passwords.ChangeVoluntary(c.Request.Context(), userID, userID, req.OldPassword, req.NewPassword, req.ConfirmNewPassword); err != nil {
		if isInternal(err) {
			h.logger.Error("password change failed", zap.Error(err), zap.Int64("user_id", userID))
		}
		RespondWithMappedError(c, err, changePasswordCases, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// isInternal reports whether the error is none of the expected sentinel cases.
func isInternal(err error) bool {
	for _, cs := range changePasswordCases {
		if errors.Is(err, cs.Err) {
			return false
		}
	}
	return true
}

func (h *PasswordHandler) destroySession(c *gin.Context, sessionID string) {
	if err := h.sessions.Destroy(c.Request.Context(), sessionID); err != nil {
		h.logger.Warn("destroy session failed", zap.Error(err))
	}
}

func (h *PasswordHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", h.cfg.CookieSecure, true)
}
