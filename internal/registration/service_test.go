package registration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
	"github.com/inkfest/backend/internal/store/memory"
)

// seedToken creates an event, an application and a registration token expiring
// in ttl, returning the store and the token string.
func seedToken(t *testing.T, ttl time.Duration, userID *uuid.UUID) (*memory.Store, string, *models.Application) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	event := &models.Event{Name: "Ink & Steel 2026", City: "Manchester", StartsAt: time.Now().AddDate(0, 2, 0)}
	if err := st.CreateEvent(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	app := &models.Application{
		EventID:         event.ID,
		UserID:          userID,
		ApplicationType: models.ApplicationTypeArtist,
		Status:          models.ApplicationStatusApproved,
		ApplicantName:   "Rosa Vane",
		ApplicantEmail:  "rosa@example.com",
	}
	if err := st.CreateApplication(ctx, app); err != nil {
		t.Fatalf("create application: %v", err)
	}
	tok := &models.RegistrationToken{
		Token:         "tok-" + uuid.New().String(),
		ApplicationID: app.ID,
		ExpiresAt:     time.Now().Add(ttl),
	}
	if err := st.CreateToken(ctx, tok); err != nil {
		t.Fatalf("create token: %v", err)
	}
	return st, tok.Token, app
}

func validData() Data {
	return Data{
		Name:              "Rosa Vane",
		Email:             "rosa@example.com",
		Phone:             "07700 900123",
		AgreementAccepted: true,
		PaymentMethod:     "bank_transfer",
	}
}

func TestLookupUnknownToken(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil, nil, nil)

	if _, err := svc.Lookup(context.Background(), "no-such-token"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := svc.Lookup(context.Background(), ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("empty token: want ErrNotFound, got %v", err)
	}
}

func TestLookupExpiredToken(t *testing.T) {
	st, token, _ := seedToken(t, -time.Hour, nil)
	svc := NewService(st, nil, nil, nil)

	if _, err := svc.Lookup(context.Background(), token); !errors.Is(err, store.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestLookupUsedToken(t *testing.T) {
	st, token, _ := seedToken(t, time.Hour, nil)
	svc := NewService(st, nil, nil, nil)

	if _, err := svc.Complete(context.Background(), token, validData()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.Lookup(context.Background(), token); !errors.Is(err, store.ErrTokenUsed) {
		t.Fatalf("want ErrTokenUsed, got %v", err)
	}
}

func TestLookupSubstitutesDefaults(t *testing.T) {
	st, token, app := seedToken(t, time.Hour, nil)
	svc := NewService(st, nil, nil, nil)

	view, err := svc.Lookup(context.Background(), token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if view.EventName != "Ink & Steel 2026" {
		t.Errorf("event name = %q", view.EventName)
	}
	if view.Requirements.AgreementText != models.DefaultAgreementText {
		t.Errorf("agreement text = %q, want default", view.Requirements.AgreementText)
	}
	if view.Requirements.ProfileDeadlineDays != models.DefaultProfileDeadlineDays {
		t.Errorf("deadline days = %d, want %d", view.Requirements.ProfileDeadlineDays, models.DefaultProfileDeadlineDays)
	}
	if view.Requirements.RequiresPayment {
		t.Error("default requirements should not require payment")
	}
	if view.PaymentSettings.CashEnabled || view.PaymentSettings.StripeEnabled {
		t.Error("default payment settings should have every method off")
	}
	if view.Application.ID != app.ID {
		t.Errorf("application id = %s, want %s", view.Application.ID, app.ID)
	}
}

func TestLookupUsesConfiguredRequirements(t *testing.T) {
	st, token, app := seedToken(t, time.Hour, nil)
	ctx := context.Background()
	if err := st.UpsertRequirements(ctx, &models.RegistrationRequirements{
		EventID:             app.EventID,
		ApplicationType:     models.ApplicationTypeArtist,
		RequiresPayment:     true,
		PaymentAmount:       150,
		AgreementText:       "Booth sharing is not permitted.",
		ProfileDeadlineDays: 14,
	}); err != nil {
		t.Fatalf("upsert requirements: %v", err)
	}
	if err := st.UpsertPaymentSettings(ctx, &models.PaymentSettings{
		EventID:     app.EventID,
		CashEnabled: true,
	}); err != nil {
		t.Fatalf("upsert payment settings: %v", err)
	}

	svc := NewService(st, nil, nil, nil)
	view, err := svc.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !view.Requirements.RequiresPayment || view.Requirements.PaymentAmount != 150 {
		t.Errorf("requirements = %+v", view.Requirements)
	}
	if view.Requirements.ProfileDeadlineDays != 14 {
		t.Errorf("deadline days = %d, want 14", view.Requirements.ProfileDeadlineDays)
	}
	if !view.PaymentSettings.CashEnabled {
		t.Error("cash should be enabled")
	}
}

// failingRequirements wraps the memory store and makes the requirements read
// fail with a non-not-found error.
type failingRequirements struct {
	*memory.Store
}

func (f failingRequirements) GetRequirements(context.Context, uuid.UUID, string) (*models.RegistrationRequirements, error) {
	return nil, errors.New("connection reset")
}

func TestResolveFallsBackOnReadFailure(t *testing.T) {
	st, token, _ := seedToken(t, time.Hour, nil)
	svc := NewService(failingRequirements{st}, nil, nil, nil)

	view, err := svc.Lookup(context.Background(), token)
	if err != nil {
		t.Fatalf("lookup should not fail on requirements read error: %v", err)
	}
	if view.Requirements.AgreementText != models.DefaultAgreementText {
		t.Errorf("agreement text = %q, want default", view.Requirements.AgreementText)
	}
}

func TestCompleteSuccess(t *testing.T) {
	userID := uuid.New()
	st, token, app := seedToken(t, time.Hour, &userID)
	ctx := context.Background()
	if err := st.UpsertRequirements(ctx, &models.RegistrationRequirements{
		EventID:             app.EventID,
		ApplicationType:     models.ApplicationTypeArtist,
		RequiresPayment:     true,
		PaymentAmount:       150,
		AgreementText:       "Booth sharing is not permitted.",
		ProfileDeadlineDays: 14,
	}); err != nil {
		t.Fatalf("upsert requirements: %v", err)
	}

	svc := NewService(st, nil, nil, nil)
	res, err := svc.Complete(ctx, token, validData())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.EventID != app.EventID {
		t.Errorf("event id = %s, want %s", res.EventID, app.EventID)
	}
	if res.ClientID == nil || *res.ClientID != userID {
		t.Errorf("client id = %v, want %s", res.ClientID, userID)
	}

	// Token is invalidated, not deleted.
	if _, err := svc.Validate(ctx, token); !errors.Is(err, store.ErrTokenUsed) {
		t.Fatalf("want ErrTokenUsed after redemption, got %v", err)
	}

	sub, err := st.GetSubmission(ctx, res.SubmissionID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if !sub.AgreementAccepted || sub.AgreementAcceptedAt == nil {
		t.Error("agreement acceptance not recorded")
	}
	if sub.PaymentAmount != 150 {
		t.Errorf("payment amount = %v, want 150", sub.PaymentAmount)
	}
	wantDeadline := time.Now().AddDate(0, 0, 14)
	if d := sub.ProfileDeadline.Sub(wantDeadline); d < -time.Minute || d > time.Minute {
		t.Errorf("profile deadline = %v, want ~%v", sub.ProfileDeadline, wantDeadline)
	}

	tickets, err := st.ListTicketsByEvent(ctx, app.EventID)
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("ticket count = %d, want 1", len(tickets))
	}
	if tickets[0].Status != models.TicketStatusActive {
		t.Errorf("ticket status = %q, want active", tickets[0].Status)
	}
	if tickets[0].PriceGBP != 0 {
		t.Errorf("ticket price = %v, want 0", tickets[0].PriceGBP)
	}
	if tickets[0].TicketType != models.ApplicationTypeArtist {
		t.Errorf("ticket type = %q", tickets[0].TicketType)
	}

	got, err := st.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if got.RegistrationCompleted == nil {
		t.Error("application registration_completed not set")
	}
}

func TestCompleteIsSingleUse(t *testing.T) {
	st, token, app := seedToken(t, time.Hour, nil)
	svc := NewService(st, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.Complete(ctx, token, validData()); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if _, err := svc.Complete(ctx, token, validData()); !errors.Is(err, store.ErrTokenUsed) {
		t.Fatalf("second complete: want ErrTokenUsed, got %v", err)
	}

	subs, _ := st.ListSubmissionsByEvent(ctx, app.EventID)
	if len(subs) != 1 {
		t.Errorf("submission count = %d, want 1", len(subs))
	}
	tickets, _ := st.ListTicketsByEvent(ctx, app.EventID)
	if len(tickets) != 1 {
		t.Errorf("ticket count = %d, want 1", len(tickets))
	}
}

func TestCompleteExpiredTokenWritesNothing(t *testing.T) {
	st, token, app := seedToken(t, -time.Hour, nil)
	svc := NewService(st, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.Complete(ctx, token, validData()); !errors.Is(err, store.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
	subs, _ := st.ListSubmissionsByEvent(ctx, app.EventID)
	if len(subs) != 0 {
		t.Errorf("submission count = %d, want 0", len(subs))
	}
	tickets, _ := st.ListTicketsByEvent(ctx, app.EventID)
	if len(tickets) != 0 {
		t.Errorf("ticket count = %d, want 0", len(tickets))
	}
}

func TestCompleteValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Data)
	}{
		{"agreement not accepted", func(d *Data) { d.AgreementAccepted = false }},
		{"missing name", func(d *Data) { d.Name = "" }},
		{"missing email", func(d *Data) { d.Email = "" }},
		{"unknown payment method", func(d *Data) { d.PaymentMethod = "cheque" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, token, app := seedToken(t, time.Hour, nil)
			svc := NewService(st, nil, nil, nil)

			data := validData()
			tc.mutate(&data)
			if _, err := svc.Complete(context.Background(), token, data); !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
			// Rejected submissions must leave no trace.
			subs, _ := st.ListSubmissionsByEvent(context.Background(), app.EventID)
			if len(subs) != 0 {
				t.Errorf("submission count = %d, want 0", len(subs))
			}
		})
	}
}

func TestCompleteConcurrentRedemption(t *testing.T) {
	st, token, app := seedToken(t, time.Hour, nil)
	svc := NewService(st, nil, nil, nil)
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Complete(ctx, token, validData())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, used int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, store.ErrTokenUsed):
			used++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if used != workers-1 {
		t.Errorf("ErrTokenUsed count = %d, want %d", used, workers-1)
	}

	tickets, _ := st.ListTicketsByEvent(ctx, app.EventID)
	if len(tickets) != 1 {
		t.Errorf("ticket count = %d, want 1", len(tickets))
	}
	subs, _ := st.ListSubmissionsByEvent(ctx, app.EventID)
	if len(subs) != 1 {
		t.Errorf("submission count = %d, want 1", len(subs))
	}
}

func TestCompleteSnapshotsPayloadWhenNoConfirmedDetails(t *testing.T) {
	st, token, _ := seedToken(t, time.Hour, nil)
	svc := NewService(st, nil, nil, nil)
	ctx := context.Background()

	res, err := svc.Complete(ctx, token, validData())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	sub, err := st.GetSubmission(ctx, res.SubmissionID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if len(sub.ConfirmedDetails) == 0 {
		t.Error("confirmed details should fall back to the submitted payload")
	}
}
