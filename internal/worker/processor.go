// Package worker consumes background jobs: transactional email delivery and
// archiving accepted agreements to S3.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inkfest/backend/internal/notify"
	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/pkg/queue"
	"github.com/inkfest/backend/pkg/storage"
)

// Processor dequeues and executes jobs with retry and DLQ handling.
type Processor struct {
	storage store.Store
	mailer  *notify.Mailer
	s3      *storage.S3
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewProcessor creates a job processor. The S3 client may be nil; archive
// jobs are then skipped with a warning.
func NewProcessor(st store.Store, mailer *notify.Mailer, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{storage: st, mailer: mailer, s3: s3, queue: q, logger: logger}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		return p.processEmail(ctx, job)
	case queue.JobTypeAgreementArchive:
		return p.processArchive(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) processEmail(ctx context.Context, job *queue.Job) error {
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	body := payload.Body
	if body == "" && payload.EmailType == "registration_confirmed" {
		body = p.confirmationBody(ctx, payload)
	}
	if err := p.mailer.Send(payload.RecipientEmail, payload.Subject, body); err != nil {
		return err
	}
	p.logger.Info("email delivered",
		zap.String("job_id", job.ID),
		zap.String("email_type", payload.EmailType),
		zap.String("to", payload.RecipientEmail))
	return nil
}

func (p *Processor) confirmationBody(ctx context.Context, payload queue.EmailPayload) string {
	eventName := "the convention"
	if e, err := p.storage.GetEvent(ctx, payload.EventID); err == nil {
		eventName = e.Name
	}
	deadline := ""
	if sub, err := p.storage.GetSubmission(ctx, payload.SubmissionID); err == nil {
		deadline = fmt.Sprintf("\nPlease complete your profile by %s.",
			sub.ProfileDeadline.Format("2 January 2006"))
	}
	return fmt.Sprintf("Your registration for %s is confirmed. Your ticket is active.%s", eventName, deadline)
}

// agreementRecord is the archived snapshot of an accepted agreement.
type agreementRecord struct {
	SubmissionID      string          `json:"submission_id"`
	ApplicationID     string          `json:"application_id"`
	EventID           string          `json:"event_id"`
	AgreementAccepted bool            `json:"agreement_accepted"`
	AcceptedAt        *time.Time      `json:"accepted_at,omitempty"`
	ConfirmedDetails  json.RawMessage `json:"confirmed_details,omitempty"`
	ArchivedAt        time.Time       `json:"archived_at"`
}

func (p *Processor) processArchive(ctx context.Context, job *queue.Job) error {
	if p.s3 == nil {
		p.logger.Warn("s3 not configured, skipping agreement archive", zap.String("job_id", job.ID))
		return nil
	}
	var payload queue.AgreementArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	sub, err := p.storage.GetSubmission(ctx, payload.SubmissionID)
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}

	record := agreementRecord{
		SubmissionID:      sub.ID.String(),
		ApplicationID:     sub.ApplicationID.String(),
		EventID:           payload.EventID.String(),
		AgreementAccepted: sub.AgreementAccepted,
		AcceptedAt:        sub.AgreementAcceptedAt,
		ConfirmedDetails:  sub.ConfirmedDetails,
		ArchivedAt:        time.Now(),
	}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	key := storage.AgreementKey(payload.EventID.String(), sub.ID.String())
	if _, err := p.s3.UploadAgreement(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		return err
	}
	p.logger.Info("agreement archived",
		zap.String("job_id", job.ID), zap.String("key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
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
