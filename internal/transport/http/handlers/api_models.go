package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the generic error payload carrying the correlation id.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response with the request id from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	requestID, _ := c.Get("request_id")
	requestIDStr, _ := requestID.(string)

	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestIDStr,
	}
}

// MessageResponse is a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest is the login payload. Clients may submit it as JSON or as an
// HTML form; both bind onto the same struct.
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// LoginResponse is returned for a fully consummated login.
type LoginResponse struct {
	UserID      int64      `json:"user_id"`
	Username    string     `json:"username"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// PasswordChangeRequiredResponse defers a login that verified correctly but
// may not complete until the password is rotated. The temp token is the only
// credential the follow-up change request needs alongside the session cookie.
type PasswordChangeRequiredResponse struct {
	Message     string `json:"message"`
	Reason      string `json:"reason"`
	TempToken   string `json:"temp_token"`
	RedirectURL string `json:"redirect_url"`
}

// ChangePasswordRequest covers both change modes. A non-empty token selects
// the mandatory flow; otherwise the old password must attest the request.
type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password" form:"old_password"`
	NewPassword        string `json:"new_password" form:"new_password" binding:"required"`
	ConfirmNewPassword string `json:"confirm_new_password" form:"confirm_new_password" binding:"required"`
	Token              string `json:"token" form:"token"`
}

// SessionResponse describes the caller's current session.
type SessionResponse struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// HealthResponse reports service status and optional readiness checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// OnboardingRunResponse summarizes an ad hoc onboarding run.
type OnboardingRunResponse struct {
	Processed int                    `json:"processed"`
	Results   []OnboardingRunOutcome `json:"results,omitempty"`
}

// OnboardingRunOutcome reports one employee's outcome within a run.
type OnboardingRunOutcome struct {
	EmployeeID int64  `json:"employee_id"`
	UserID     int64  `json:"user_id,omitempty"`
	Username   string `json:"username,omitempty"`
	Mailed     bool   `json:"mailed"`
	Error      string `json:"error,omitempty"`
}
