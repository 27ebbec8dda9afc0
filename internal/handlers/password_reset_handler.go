package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shopsite/internal/models"
	"shopsite/internal/repositories"
	"shopsite/internal/services"
)

const (
	otpSessionCookie = "otp_session"
	// State outlives the longest backoff entry (8h).
	throttleStateTTL = 24 * time.Hour
)

type PasswordResetHandler struct {
	otp      services.OTPService
	throttle repositories.ThrottleStore
	now      func() time.Time
}

func NewPasswordResetHandler(otp services.OTPService, throttle repositories.ThrottleStore) *PasswordResetHandler {
	return &PasswordResetHandler{otp: otp, throttle: throttle, now: time.Now}
}

// Request issues a reset token for an existing account and sends the first
// OTP, with a verification link in the mail.
func (h *PasswordResetHandler) Request(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.otp.RequestReset(req.Email)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User with this email does not exist. Please register first!"})
			return
		}
		log.Printf("[reset][request] failed for %q: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start password reset"})
		return
	}

	if _, err := h.otp.GenerateAndSendOTP(req.Email, token, false); err != nil {
		if errors.Is(err, services.ErrEmailDelivery) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "We could not send your code. Please try again."})
			return
		}
		log.Printf("[reset][request] otp issue failed for %q: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your email.", "token": token})
}

// Resend reissues the code for an existing token. The fresh code carries a
// clean attempt counter; the mail has no link this time.
func (h *PasswordResetHandler) Resend(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email, err := h.otp.EmailFromToken(req.Token)
	if err != nil {
		h.tokenError(c, err)
		return
	}
	if _, err := h.otp.GenerateAndSendOTP(email, req.Token, true); err != nil {
		if errors.Is(err, services.ErrEmailDelivery) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "We could not send your code. Please try again."})
			return
		}
		log.Printf("[reset][resend] failed for %q: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A new OTP has been sent to your email."})
}

// Verify checks the submitted code. The session-level throttle runs first and
// rejects bursts without consuming a per-code attempt slot.
func (h *PasswordResetHandler) Verify(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	sessionID := h.sessionID(c)
	now := h.now()

	state, err := h.throttle.Get(ctx, sessionID)
	if err != nil {
		log.Printf("[reset][verify] throttle read failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	if status := services.CheckThrottle(state, now); status != nil {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":                     fmt.Sprintf("Too many attempts. Try again in %s.", status.RemainingMessage),
			"is_disabled":               status.Disabled,
			"remaining_message":         status.RemainingMessage,
			"next_attempt_time_seconds": status.RemainingSeconds,
		})
		return
	}

	email, err := h.otp.EmailFromToken(req.Token)
	if err != nil {
		h.tokenError(c, err)
		return
	}

	switch err := h.otp.VerifyOTP(email, req.OTP, req.Token); {
	case err == nil:
		if cerr := h.throttle.Clear(ctx, sessionID); cerr != nil {
			log.Printf("[reset][verify] throttle clear failed: %v", cerr)
		}
		c.JSON(http.StatusOK, gin.H{"message": "OTP verified successfully."})

	case errors.Is(err, services.ErrCodeExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "OTP has expired."})

	case errors.Is(err, services.ErrTooManyAttempts):
		h.registerFailure(ctx, sessionID, state, now)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many failed attempts. Please request a new OTP."})

	case errors.Is(err, services.ErrOTPNotFound):
		h.registerFailure(ctx, sessionID, state, now)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token or OTP."})

	case errors.Is(err, services.ErrCodeInvalid):
		h.registerFailure(ctx, sessionID, state, now)
		var ice *services.InvalidCodeError
		if errors.As(err, &ice) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid OTP. You have %d attempts left.", ice.AttemptsLeft)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP."})

	default:
		log.Printf("[reset][verify] failed for %q: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
	}
}

// Reset sets the new password once the token still validates.
func (h *PasswordResetHandler) Reset(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.otp.ResetPassword(req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, services.ErrTokenExpired), errors.Is(err, services.ErrTokenInvalid):
			h.tokenError(c, err)
		case errors.Is(err, services.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User with this email does not exist. Please register first!"})
		default:
			log.Printf("[reset][confirm] failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully."})
}

func (h *PasswordResetHandler) tokenError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrTokenExpired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The link has expired. Please request a new OTP."})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token."})
}

func (h *PasswordResetHandler) sessionID(c *gin.Context) string {
	if id, err := c.Cookie(otpSessionCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(otpSessionCookie, id, int(throttleStateTTL.Seconds()), "/", "", false, true)
	return id
}

// registerFailure bumps the session counter and schedules the cooldown once
// the threshold is crossed. Both values go back to the session store.
func (h *PasswordResetHandler) registerFailure(ctx context.Context, sessionID string, state models.ThrottleState, now time.Time) {
	state, delay := services.RegisterThrottleFailure(state, now)
	if delay > 0 {
		log.Printf("[reset][verify] session %s throttled for %s (attempts=%d)", sessionID, delay, state.Attempts)
	}
	if err := h.throttle.Set(ctx, sessionID, state, throttleStateTTL); err != nil {
		log.Printf("[reset][verify] throttle write failed: %v", err)
	}
}
