package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/esn-portal/backend/config"
	"github.com/esn-portal/backend/pkg/queue"
)

// EmailProcessor delivers registration confirmation and cancellation emails
// from the queue. Without SMTP configured it logs deliveries instead, which
// keeps local development working.
type EmailProcessor struct {
	queue  *queue.Queue
	email  config.EmailConfig
	logger *zap.Logger
}

// NewEmailProcessor creates a registration email processor.
func NewEmailProcessor(q *queue.Queue, email config.EmailConfig, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{queue: q, email: email, logger: logger}
}

// Process executes one registration email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeRegistrationEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.RegistrationEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	subject, body := renderEmail(payload)

	if p.email.SMTPHost == "" {
		p.logger.Info("email delivery skipped (no SMTP configured)",
			zap.String("to", payload.RecipientEmail),
			zap.String("subject", subject))
		return nil
	}

	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		p.email.FromName, p.email.FromAddress, payload.RecipientEmail, subject, body)
	addr := fmt.Sprintf("%s:%d", p.email.SMTPHost, p.email.SMTPPort)
	var auth smtp.Auth
	if p.email.SMTPUser != "" {
		auth = smtp.PlainAuth("", p.email.SMTPUser, p.email.SMTPPass, p.email.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, p.email.FromAddress, []string{payload.RecipientEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	p.logger.Info("registration email sent",
		zap.String("to", payload.RecipientEmail),
		zap.String("kind", string(payload.Kind)),
		zap.String("registration_id", payload.RegistrationID.String()))
	return nil
}

func renderEmail(p queue.RegistrationEmailPayload) (subject, body string) {
	switch p.Kind {
	case queue.EmailRegistrationCancelled:
		subject = "Registration cancelled: " + p.EventTitle
		body = fmt.Sprintf("Hi %s,\n\nYour registration for %q has been cancelled.\n", p.RecipientName, p.EventTitle)
	default:
		subject = "Registration confirmed: " + p.EventTitle
		body = fmt.Sprintf("Hi %s,\n\nYou are registered for %q. See you there!\n", p.RecipientName, p.EventTitle)
	}
	return subject, body
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}
