package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"learnstack/internal/logger"
)

// Mailer delivers one-time codes to users
type Mailer interface {
	SendVerificationCode(ctx context.Context, toEmail, username, code string, ttl time.Duration) error
	SendPasswordResetCode(ctx context.Context, toEmail, username, code string, ttl time.Duration) error
}

// sesAPI is the part of the SES client the service calls
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	log        *logger.Logger
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

var _ Mailer = (*EmailService)(nil)

// NewEmailService creates a new email service. Without a sender address the
// service is disabled and only logs.
func NewEmailService(ctx context.Context, log *logger.Logger, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	log = log.With("service", "EmailService")
	if fromEmail == "" {
		log.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{log: log, appBaseURL: appBaseURL, debug: debug}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email service enabled", "region", awsRegion)
	return &EmailService{
		log:        log,
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendVerificationCode mails the account verification code
func (s *EmailService) SendVerificationCode(ctx context.Context, toEmail, username, code string, ttl time.Duration) error {
	subject := "Your LearnStack verification code"
	text := fmt.Sprintf(`Hi %s,

Your verification code is %s. It expires in %d minutes.

Enter it at %s/verify to activate your account.
`, username, code, int(ttl.Minutes()), s.appBaseURL)
	return s.deliver(ctx, "verification", toEmail, code, subject, text)
}

// SendPasswordResetCode mails the password reset code
func (s *EmailService) SendPasswordResetCode(ctx context.Context, toEmail, username, code string, ttl time.Duration) error {
	subject := "Reset your LearnStack password"
	text := fmt.Sprintf(`Hi %s,

Your password reset code is %s. It expires in %d minutes.

If you didn't request a password reset, you can safely ignore this email.
`, username, code, int(ttl.Minutes()))
	return s.deliver(ctx, "password_reset", toEmail, code, subject, text)
}

func (s *EmailService) deliver(ctx context.Context, kind, toEmail, code, subject, text string) error {
	if !s.enabled {
		if s.debug {
			// local development only: the code is otherwise unrecoverable
			s.log.Debug("email disabled, code not sent", "kind", kind, "code", code)
		} else {
			s.log.Info("email disabled, code not sent", "kind", kind)
		}
		return nil
	}
	return s.sendEmail(ctx, toEmail, subject, text)
}

// sendEmail sends a plain text email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if s.debug && result.MessageId != nil {
		s.log.Debug("email sent", "subject", subject, "message_id", *result.MessageId)
	}
	return nil
}
