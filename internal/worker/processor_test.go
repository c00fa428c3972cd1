package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/inkfest/backend/config"
	"github.com/inkfest/backend/internal/notify"
	"github.com/inkfest/backend/internal/store/memory"
	"github.com/inkfest/backend/pkg/queue"
)

func newTestProcessor() *Processor {
	mailer := notify.NewMailer(config.EmailConfig{}, nil) // no SMTP host: logs and skips
	return NewProcessor(memory.New(), mailer, nil, nil, nil)
}

func job(t *testing.T, jobType queue.JobType, payload interface{}) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: uuid.New().String(), Type: jobType, Payload: raw}
}

func TestProcessUnknownJobType(t *testing.T) {
	p := newTestProcessor()
	if err := p.Process(context.Background(), job(t, "mystery", struct{}{})); err == nil {
		t.Fatal("want error for unknown job type")
	}
}

func TestProcessEmailWithoutSMTP(t *testing.T) {
	p := newTestProcessor()
	err := p.Process(context.Background(), job(t, queue.JobTypeEmail, queue.EmailPayload{
		EmailType:      "application_approved",
		RecipientEmail: "jo@example.com",
		Subject:        "Approved",
		Body:           "See link inside.",
	}))
	if err != nil {
		t.Fatalf("email job should be a no-op without SMTP: %v", err)
	}
}

func TestProcessArchiveWithoutS3(t *testing.T) {
	p := newTestProcessor()
	err := p.Process(context.Background(), job(t, queue.JobTypeAgreementArchive, queue.AgreementArchivePayload{
		SubmissionID: uuid.New(),
		EventID:      uuid.New(),
	}))
	if err != nil {
		t.Fatalf("archive job should be skipped without S3: %v", err)
	}
}

func TestProcessEmailBadPayload(t *testing.T) {
	p := newTestProcessor()
	bad := &queue.Job{ID: uuid.New().String(), Type: queue.JobTypeEmail, Payload: json.RawMessage(`{`)}
	if err := p.Process(context.Background(), bad); err == nil {
		t.Fatal("want error for malformed payload")
	}
}
