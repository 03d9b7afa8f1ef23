package email

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

func appURL() string {
	if v := os.Getenv("APP_URL"); v != "" {
		return v
	}
	return "http://localhost:8000"
}

func send(to, subject, body string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}
	if host == "" || port == "" || user == "" || pass == "" || from == "" {
		return fmt.Errorf("SMTP environment variables missing")
	}
	addr := fmt.Sprintf("%s:%s", host, port)
	auth := smtp.PlainAuth("", user, pass, host)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body))
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

// SendVerification mails the account-activation link for a new registration.
func SendVerification(to, token string) error {
	subject := "Verify your email"
	body := fmt.Sprintf(`Welcome!

Please confirm your email address by opening the link below:
%s/verify-email?token=%s

If you did not create this account, you can ignore this message.`, appURL(), token)
	if err := send(to, subject, body); err != nil {
		return err
	}
	log.Printf("[EMAIL] verification sent to %s", to)
	return nil
}

// SendPasswordReset mails the reset token. The link expires in 1 hour.
func SendPasswordReset(to, token string) error {
	subject := "Password reset"
	body := fmt.Sprintf(`Hello,

We received a request to reset your password.

Open the link below to choose a new password:
%s/reset-password?token=%s

This link expires in 1 hour. If you did not request this, ignore this email.`, appURL(), token)
	if err := send(to, subject, body); err != nil {
		return err
	}
	log.Printf("[EMAIL] password reset sent to %s", to)
	return nil
}

// SendUpgradeApproved notifies a user that an admin approved their premium
// upgrade request.
func SendUpgradeApproved(to string) error {
	subject := "Your account is now premium"
	body := "An administrator approved your upgrade request. Premium access is active."
	if err := send(to, subject, body); err != nil {
		return err
	}
	log.Printf("[EMAIL] upgrade approval sent to %s", to)
	return nil
}
