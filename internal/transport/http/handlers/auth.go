package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/config"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/security"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/transport/http/middleware"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/usecase"
)

// changePasswordRedirect is where a deferred login sends the client next.
const changePasswordRedirect = "/change-password"

// AuthHandler exposes the login, logout and session probe endpoints.
type AuthHandler struct {
	auth     *usecase.AuthService
	sessions port.SessionStore
	cfg      config.SessionSettings
	logger   *zap.Logger
	metrics  *AuthMetrics
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, sessions port.SessionStore, cfg config.SessionSettings, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// WithMetrics attaches the login outcome counter.
func (h *AuthHandler) WithMetrics(m *AuthMetrics) *AuthHandler {
	h.metrics = m
	return h
}

// Login evaluates credentials and establishes a session. A correct password on
// an account that must first rotate its password gets a short-lived remedial
// session carrying a one-shot change token instead of an authenticated one.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	outcome, err := h.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Error("authentication failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	h.metrics.Observe(outcome.Kind.String())

	// Whatever the outcome, a session id presented with the login attempt is
	// dead weight; dropping it here blocks session fixation.
	h.discardPresentedSession(c)

	switch outcome.Kind {
	case usecase.OutcomeBadCredentials:
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid username or password"))

	case usecase.OutcomePermanentlyLocked:
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "account locked, contact your administrator"))

	case usecase.OutcomeTemporarilyLocked:
		// The remaining lock time stays in the logs; the response must not
		// disclose it.
		h.logger.Info("login rejected on locked account",
			zap.Time("locked_until", outcome.LockedUntil),
		)
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "account temporarily locked"))

	case usecase.OutcomePasswordExpired:
		h.deferLogin(c, outcome, domain.ChangeReasonPasswordExpired)

	case usecase.OutcomeFirstLoginRequired:
		h.deferLogin(c, outcome, domain.ChangeReasonFirstLogin)

	case usecase.OutcomeSuccess:
		h.consummateLogin(c, outcome)

	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
	}
}

// Logout destroys the presented session. Logging out without one succeeds; the
// end state is the same.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.discardPresentedSession(c)
	h.clearCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// Session reports the caller's current session. Runs behind the session gate,
// so reaching the handler implies an authenticated session on the context.
func (h *AuthHandler) Session(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		UserID:     *session.UserID,
		Username:   session.Username,
		CreatedAt:  session.CreatedAt,
		LastSeenAt: session.LastSeenAt,
	})
}

func (h *AuthHandler) consummateLogin(c *gin.Context, outcome usecase.AuthOutcome) {
	session, err := h.sessions.Create(c.Request.Context(), h.cfg.Timeout)
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	userID := outcome.UserID
	username := outcome.Username
	attrs := port.SessionAttributes{
		UserID:   &userID,
		Username: &username,
	}
	if err := h.sessions.SetAttributes(c.Request.Context(), session.ID, attrs); err != nil {
		h.logger.Error("pin session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	h.setCookie(c, session.ID)
	c.JSON(http.StatusOK, LoginResponse{
		UserID:   outcome.UserID,
		Username: outcome.Username,
	})
}

func (h *AuthHandler) deferLogin(c *gin.Context, outcome usecase.AuthOutcome, reason string) {
	tempToken, err := security.GenerateTempToken()
	if err != nil {
		h.logger.Error("mint temp token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), h.cfg.RemedialTimeout)
	if err != nil {
		h.logger.Error("create remedial session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	username := outcome.Username
	attrs := port.SessionAttributes{
		TempToken:    &tempToken,
		ChangeReason: &reason,
		Username:     &username,
	}
	if err := h.sessions.SetAttributes(c.Request.Context(), session.ID, attrs); err != nil {
		h.logger.Error("pin remedial session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	h.setCookie(c, session.ID)
	c.JSON(http.StatusOK, PasswordChangeRequiredResponse{
		Message:     "password change required",
		Reason:      reason,
		TempToken:   tempToken,
		RedirectURL: changePasswordRedirect,
	})
}

// discardPresentedSession destroys whatever session the request carried.
func (h *AuthHandler) discardPresentedSession(c *gin.Context) {
	sessionID, err := c.Cookie(h.cfg.CookieName)
	if err != nil || sessionID == "" {
		return
	}
	if err := h.sessions.Destroy(c.Request.Context(), sessionID); err != nil {
		h.logger.Warn("destroy presented session failed", zap.Error(err))
	}
}

func (h *AuthHandler) setCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, sessionID, 0, "/", "", h.cfg.CookieSecure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", h.cfg.CookieSecure, true)
}
