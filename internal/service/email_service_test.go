package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstack/internal/logger"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailServiceSendsCode(t *testing.T) {
	ses := &fakeSES{}
	s := &EmailService{log: logger.Nop(), client: ses, fromEmail: "noreply@learnstack.test", fromName: "LearnStack", enabled: true}

	require.NoError(t, s.SendVerificationCode(context.Background(), "a@b.co", "alice", "123456", 5*time.Minute))
	require.Len(t, ses.inputs, 1)

	in := ses.inputs[0]
	assert.Equal(t, "LearnStack <noreply@learnstack.test>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"a@b.co"}, in.Destination.ToAddresses)
	body := aws.ToString(in.Content.Simple.Body.Text.Data)
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "5 minutes")
}

func TestEmailServiceWrapsSendError(t *testing.T) {
	ses := &fakeSES{err: errors.New("throttled")}
	s := &EmailService{log: logger.Nop(), client: ses, fromEmail: "noreply@learnstack.test", enabled: true}

	err := s.SendPasswordResetCode(context.Background(), "a@b.co", "alice", "654321", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestEmailServiceDisabledIsNoop(t *testing.T) {
	s, err := NewEmailService(context.Background(), logger.Nop(), "us-east-1", "", "", "http://localhost", true)
	require.NoError(t, err)
	assert.False(t, s.IsEnabled())
	assert.NoError(t, s.SendVerificationCode(context.Background(), "a@b.co", "alice", "123456", time.Minute))
}
