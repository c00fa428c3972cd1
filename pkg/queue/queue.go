package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueJobs is the Redis list key for background jobs.
	QueueJobs = "worker:jobs"
	// QueueDLQ is the dead-letter queue for jobs that exhausted retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEmail            JobType = "email"
	JobTypeAgreementArchive JobType = "agreement_archive"
)

// EmailPayload is the payload for email jobs (application approval and
// registration confirmation).
type EmailPayload struct {
	EmailType      string    `json:"email_type"`
	EventID        uuid.UUID `json:"event_id"`
	ApplicationID  uuid.UUID `json:"application_id,omitempty"`
	SubmissionID   uuid.UUID `json:"submission_id,omitempty"`
	RecipientEmail string    `json:"recipient_email"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body,omitempty"`
}

// AgreementArchivePayload is the payload for agreement archive jobs: the
// worker snapshots the accepted agreement to S3.
type AgreementArchivePayload struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	EventID      uuid.UUID `json:"event_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via a Redis list.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

func (q *Queue) enqueue(ctx context.Context, jobType JobType, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueJobs, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(jobType)))
	return nil
}

// EnqueueEmail enqueues an email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	return q.enqueue(ctx, JobTypeEmail, payload)
}

// EnqueueAgreementArchive enqueues an agreement archive job.
func (q *Queue) EnqueueAgreementArchive(ctx context.Context, payload AgreementArchivePayload) error {
	return q.enqueue(ctx, JobTypeAgreementArchive, payload)
}

// Dequeue blocks until a job is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, 0, QueueJobs).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. After MaxRetries the job
// moves to the DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueJobs, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
