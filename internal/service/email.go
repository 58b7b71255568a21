package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (s *EmailService) send(kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", kind, "to", to)
	}
	return err
}

func (s *EmailService) SendWelcomeEmail(email, name string) error {
	portalURL := fmt.Sprintf("%s/app/submissions", s.appURL)
	subject, body := welcomeEmailTemplate(name, portalURL, s.appName)
	return s.send("welcome", email, subject, body)
}

func (s *EmailService) SendPasswordResetEmail(email, token, name string) error {
	resetURL := fmt.Sprintf("%s/auth/reset-password/%s", s.appURL, token)
	subject, body := passwordResetEmailTemplate(name, resetURL, s.appName)
	return s.send("password_reset", email, subject, body)
}

// SendSubmissionReceived confirms to the owner that their signed submission
// entered the review queue.
func (s *EmailService) SendSubmissionReceived(email, name, address string) error {
	subject, body := submissionReceivedTemplate(name, address, s.appName)
	return s.send("submission_received", email, subject, body)
}

// SendReviewDecision notifies the owner of the admin's decision.
func (s *EmailService) SendReviewDecision(email, name, address, status, notes string) error {
	subject, body := reviewDecisionTemplate(name, address, status, notes, s.appName)
	return s.send("review_decision", email, subject, body)
}
