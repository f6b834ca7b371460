package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/transport/http/middleware"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/usecase"
)

// AdminHandler exposes the administrative account operations and the ad hoc
// onboarding trigger. All routes run behind the session gate plus the admin
// check.
type AdminHandler struct {
	accounts   *usecase.AccountService
	onboarding *usecase.OnboardingService
	logger     *zap.Logger
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(accounts *usecase.AccountService, onboarding *usecase.OnboardingService, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		accounts:   accounts,
		onboarding: onboarding,
		logger:     logger,
	}
}

var adminAccountCases = []ErrorCase{
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
}

// DeactivateUser retires the account named in the path.
func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID, _ := middleware.UserIDFromContext(c)

	if err := h.accounts.Deactivate(c.Request.Context(), userID, actorID); err != nil {
		h.logger.Error("deactivate user failed", zap.Error(err), zap.Int64("user_id", userID))
		RespondWithMappedError(c, err, adminAccountCases, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "account deactivated"})
}

// UnlockUser lifts a lock, including permanent ones.
func (h *AdminHandler) UnlockUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID, _ := middleware.UserIDFromContext(c)

	if err := h.accounts.Unlock(c.Request.Context(), userID, actorID); err != nil {
		h.logger.Error("unlock user failed", zap.Error(err), zap.Int64("user_id", userID))
		RespondWithMappedError(c, err, adminAccountCases, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "account unlocked"})
}

// TerminateEmployee closes the employee record and deactivates the linked
// account.
func (h *AdminHandler) TerminateEmployee(c *gin.Context) {
	employeeID, ok := pathID(c, "id")
	if !ok {
		return
	}
	actorID, _ := middleware.UserIDFromContext(c)

	if err := h.accounts.TerminateEmployee(c.Request.Context(), employeeID, actorID); err != nil {
		h.logger.Error("terminate employee failed", zap.Error(err), zap.Int64("employee_id", employeeID))
		RespondWithMappedError(c, err, adminAccountCases, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "employee terminated"})
}

// RunOnboarding triggers the onboarding job outside its schedule.
func (h *AdminHandler) RunOnboarding(c *gin.Context) {
	report, err := h.onboarding.RunOnce(c.Request.Context())
	if err != nil {
		h.logger.Error("onboarding run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	resp := OnboardingRunResponse{Processed: len(report.Results)}
	for _, result := range report.Results {
		outcome := OnboardingRunOutcome{
			EmployeeID: result.EmployeeID,
			UserID:     result.UserID,
			Username:   result.Username,
			Mailed:     result.Mailed,
		}
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		}
		resp.Results = append(resp.Results, outcome)
	}
	c.JSON(http.StatusOK, resp)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid id"))
		return 0, false
	}
	return id, true
}
