package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendWelcomeEmail(email, username string) error
	SendOTPEmail(email, code, verificationURL string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendWelcomeEmail(email, username string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to Shopsite!")

	body := fmt.Sprintf(`
		<h2>Welcome to Shopsite, %s!</h2>
		<p>Thank you for registering with us. Your account has been created.</p>
		<p>Happy shopping,<br>The Shopsite Team</p>
	`, username)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	return nil
}

// SendOTPEmail mails the verification code. verificationURL is empty on a
// resend; then only the code is sent.
func (s *emailService) SendOTPEmail(email, code, verificationURL string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your OTP Code")

	body := fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>Your one-time code is: <strong>%s</strong></p>
		<p>The code is valid for 5 minutes.</p>
	`, code)
	if verificationURL != "" {
		body += fmt.Sprintf(`
		<p>Enter it on the verification page: <a href="%s">%s</a></p>
	`, verificationURL, verificationURL)
	}
	body += `
		<p>If you did not request this change, you can ignore this email.</p>
	`

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}

	return nil
}
