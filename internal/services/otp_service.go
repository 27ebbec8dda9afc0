package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shopsite/internal/repositories"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrTokenExpired    = errors.New("reset link expired")
	ErrTokenInvalid    = errors.New("invalid token")
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeInvalid     = errors.New("code invalid")
	ErrOTPNotFound     = errors.New("invalid token or code")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrEmailDelivery   = errors.New("email delivery failed")
)

const (
	resetTokenTTL  = 10 * time.Minute
	otpTTL         = 5 * time.Minute
	maxOTPAttempts = 3
)

// InvalidCodeError reports how many guesses remain for the current code.
type InvalidCodeError struct {
	AttemptsLeft int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code: %d attempts left", e.AttemptsLeft)
}

func (e *InvalidCodeError) Is(target error) bool { return target == ErrCodeInvalid }

type OTPService interface {
	RequestReset(email string) (string, error)
	EmailFromToken(token string) (string, error)
	GenerateAndSendOTP(email, token string, resend bool) (string, error)
	VerifyOTP(email, code, token string) error
	ResetPassword(token, newPassword string) error
}

type otpService struct {
	users   repositories.UserRepository
	otps    repositories.PasswordOTPRepository
	emails  EmailService
	auth    AuthService
	secret  []byte
	siteURL string
	now     func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewOTPService(
	users repositories.UserRepository,
	otps repositories.PasswordOTPRepository,
	emails EmailService,
	auth AuthService,
	secret, siteURL string,
) OTPService {
	return &otpService{
		users:   users,
		otps:    otps,
		emails:  emails,
		auth:    auth,
		secret:  []byte(secret),
		siteURL: siteURL,
		now:     time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// normalizeEmail is applied by every operation that keys on the email, so the
// token claims and the stored OTP row always agree regardless of how the
// caller cased the address.
func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

type resetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RequestReset checks the account exists and issues a signed reset token
// carrying the email and a 10 minute expiry. The token is self-contained:
// decoding needs only the secret, no server-side lookup.
func (s *otpService) RequestReset(email string) (string, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return "", err
	}
	if user == nil {
		log.Printf("[otp][request] no account for %q", email)
		return "", ErrAccountNotFound
	}

	claims := &resetClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(resetTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	log.Printf("[otp][request] token issued for %q", email)
	return token, nil
}

// EmailFromToken decodes and validates a reset token. Pure, no side effects.
func (s *otpService) EmailFromToken(tokenStr string) (string, error) {
	claims := &resetClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid || claims.Email == "" {
		return "", ErrTokenInvalid
	}
	return claims.Email, nil
}

// generateCode draws a uniform 6-digit code, no leading zeros. One generator
// seeded at construction, so back-to-back issuances never share a seed.
func (s *otpService) generateCode() string {
	s.mu.Lock()
	n := s.rnd.Intn(900000)
	s.mu.Unlock()
	return fmt.Sprintf("%d", 100000+n)
}

// GenerateAndSendOTP issues a fresh code for the email and mails it. The
// previous code for the same email is overwritten and its attempt counter
// cleared, so a resend never inherits earlier failures. On first issuance the
// mail carries a verification link with the token; a resend sends only the
// code. The code is returned to the caller as well.
func (s *otpService) GenerateAndSendOTP(email, token string, resend bool) (string, error) {
	email = normalizeEmail(email)
	code := s.generateCode()
	now := s.now()
	if _, err := s.otps.Upsert(email, code, token, now.Add(otpTTL), now); err != nil {
		return "", err
	}

	verificationURL := ""
	if !resend {
		verificationURL = fmt.Sprintf("%s/verify-otp?token=%s", s.siteURL, token)
	}
	if err := s.emails.SendOTPEmail(email, code, verificationURL); err != nil {
		log.Printf("[otp][send] delivery failed for %q: %v", email, err)
		return "", fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	log.Printf("[otp][send] code issued for %q resend=%v", email, resend)
	return code, nil
}

// VerifyOTP runs the per-code state machine. Expiry is checked before the
// code comparison, so an expired record never verifies. A correct code is
// single-use: the record is consumed on success and a repeat submission finds
// nothing. A wrong code increments the counter in a single SQL statement, so
// racing attempts cannot under-count exhaustion.
func (s *otpService) VerifyOTP(email, code, token string) error {
	email = normalizeEmail(email)
	rec, err := s.otps.GetByEmailAndToken(email, token)
	if err != nil {
		return err
	}
	if rec == nil {
		// deliberately generic: do not reveal whether the token was valid
		return ErrOTPNotFound
	}
	if s.now().After(rec.ExpiresAt) {
		return ErrCodeExpired
	}

	if rec.Code == code {
		if rec.Attempts >= maxOTPAttempts {
			return ErrTooManyAttempts
		}
		consumed, err := s.otps.Consume(rec.ID)
		if err != nil {
			return err
		}
		if !consumed {
			// a concurrent submission got here first
			return ErrOTPNotFound
		}
		log.Printf("[otp][verify] OK for %q", email)
		return nil
	}

	attempts, err := s.otps.IncrementAttempts(rec.ID)
	if err != nil {
		return err
	}
	if attempts >= maxOTPAttempts {
		return ErrTooManyAttempts
	}
	return &InvalidCodeError{AttemptsLeft: maxOTPAttempts - attempts}
}

// ResetPassword validates the token and replaces the account's password hash.
func (s *otpService) ResetPassword(token, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if len(newPassword) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	email, err := s.EmailFromToken(token)
	if err != nil {
		return err
	}
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrAccountNotFound
	}
	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(user.ID, hash); err != nil {
		return err
	}
	log.Printf("[otp][reset] password updated for %q", email)
	return nil
}
