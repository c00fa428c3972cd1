package applications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/internal/store/memory"
)

func seedApplication(t *testing.T, st *memory.Store) *models.Application {
	t.Helper()
	ctx := context.Background()
	event := &models.Event{Name: "Coastal Ink", City: "Brighton", StartsAt: time.Now().AddDate(0, 3, 0)}
	if err := st.CreateEvent(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	app := &models.Application{
		EventID:         event.ID,
		ApplicationType: models.ApplicationTypeArtist,
		ApplicantName:   "Jo Flint",
		ApplicantEmail:  "jo@example.com",
	}
	if err := st.CreateApplication(ctx, app); err != nil {
		t.Fatalf("create application: %v", err)
	}
	return app
}

func TestApproveMintsRedeemableToken(t *testing.T) {
	st := memory.New()
	app := seedApplication(t, st)
	svc := NewService(st, nil, nil, "http://localhost:3000", nil)
	ctx := context.Background()

	tok, err := svc.Approve(ctx, app.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(tok.Token) != 43 {
		t.Errorf("token length = %d, want 43", len(tok.Token))
	}
	if wait := time.Until(tok.ExpiresAt); wait < TokenTTL-time.Minute || wait > TokenTTL {
		t.Errorf("expiry = %v, want ~%v out", tok.ExpiresAt, TokenTTL)
	}

	view, err := st.GetTokenView(ctx, tok.Token)
	if err != nil {
		t.Fatalf("token not stored: %v", err)
	}
	if view.UsedAt != nil {
		t.Error("fresh token should be unused")
	}
	if view.ApplicationID != app.ID {
		t.Errorf("application id = %s, want %s", view.ApplicationID, app.ID)
	}

	got, err := st.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if got.Status != models.ApplicationStatusApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
}

func TestApproveTwiceConflicts(t *testing.T) {
	st := memory.New()
	app := seedApplication(t, st)
	svc := NewService(st, nil, nil, "http://localhost:3000", nil)
	ctx := context.Background()

	if _, err := svc.Approve(ctx, app.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, err := svc.Approve(ctx, app.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second approve: want ErrConflict, got %v", err)
	}
}

func TestSubmitUnknownEvent(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil, nil, "http://localhost:3000", nil)

	app := &models.Application{
		ApplicationType: models.ApplicationTypeTrader,
		ApplicantName:   "No Event",
		ApplicantEmail:  "no@example.com",
	}
	if err := svc.Submit(context.Background(), app); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSubmitSetsPending(t *testing.T) {
	st := memory.New()
	seeded := seedApplication(t, st)
	svc := NewService(st, nil, nil, "http://localhost:3000", nil)

	app := &models.Application{
		EventID:         seeded.EventID,
		ApplicationType: models.ApplicationTypeVolunteer,
		Status:          "approved", // callers cannot pre-approve themselves
		ApplicantName:   "Eager Volunteer",
		ApplicantEmail:  "eager@example.com",
	}
	if err := svc.Submit(context.Background(), app); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if app.Status != models.ApplicationStatusPending {
		t.Errorf("status = %q, want pending", app.Status)
	}
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := generateToken()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token after %d mints", i)
		}
		seen[tok] = true
	}
}
