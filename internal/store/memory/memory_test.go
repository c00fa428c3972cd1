package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
)

func seed(t *testing.T, st *Store, ttl time.Duration, userID *uuid.UUID) (string, *models.Application) {
	t.Helper()
	ctx := context.Background()
	event := &models.Event{Name: "Test Convention", StartsAt: time.Now().AddDate(0, 1, 0)}
	if err := st.CreateEvent(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	app := &models.Application{
		EventID:         event.ID,
		UserID:          userID,
		ApplicationType: models.ApplicationTypeArtist,
		Status:          models.ApplicationStatusApproved,
		ApplicantName:   "Test Artist",
		ApplicantEmail:  "artist@example.com",
	}
	if err := st.CreateApplication(ctx, app); err != nil {
		t.Fatalf("create application: %v", err)
	}
	tok := &models.RegistrationToken{Token: "mem-test-token", ApplicationID: app.ID, ExpiresAt: time.Now().Add(ttl)}
	if err := st.CreateToken(ctx, tok); err != nil {
		t.Fatalf("create token: %v", err)
	}
	return tok.Token, app
}

func params(token string) store.CompleteParams {
	return store.CompleteParams{
		Token:             token,
		Client:            models.Client{Name: "Test Artist", Email: "artist@example.com"},
		ConfirmedDetails:  json.RawMessage(`{"name":"Test Artist"}`),
		AgreementAccepted: true,
		PaymentMethod:     "cash",
		PaymentAmount:     100,
		ProfileDeadline:   time.Now().AddDate(0, 0, 30),
	}
}

func TestCompleteRegistrationSecondCallFails(t *testing.T) {
	st := New()
	token, _ := seed(t, st, time.Hour, nil)
	ctx := context.Background()

	if _, err := st.CompleteRegistration(ctx, params(token)); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := st.CompleteRegistration(ctx, params(token)); !errors.Is(err, store.ErrTokenUsed) {
		t.Fatalf("second: want ErrTokenUsed, got %v", err)
	}
}

func TestCompleteRegistrationExpired(t *testing.T) {
	st := New()
	token, app := seed(t, st, -time.Minute, nil)
	ctx := context.Background()

	if _, err := st.CompleteRegistration(ctx, params(token)); !errors.Is(err, store.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
	// A failed redemption must not leave partial writes.
	if subs, _ := st.ListSubmissionsByEvent(ctx, app.EventID); len(subs) != 0 {
		t.Errorf("submissions = %d, want 0", len(subs))
	}
	if tickets, _ := st.ListTicketsByEvent(ctx, app.EventID); len(tickets) != 0 {
		t.Errorf("tickets = %d, want 0", len(tickets))
	}
}

func TestCompleteRegistrationUnknownToken(t *testing.T) {
	st := New()
	if _, err := st.CompleteRegistration(context.Background(), params("nope")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCompleteRegistrationTokenInvalidatedNotDeleted(t *testing.T) {
	st := New()
	token, _ := seed(t, st, time.Hour, nil)
	ctx := context.Background()

	if _, err := st.CompleteRegistration(ctx, params(token)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	view, err := st.GetTokenView(ctx, token)
	if err != nil {
		t.Fatalf("token should still exist: %v", err)
	}
	if view.UsedAt == nil {
		t.Error("used_at not set")
	}
}

func TestCompleteRegistrationClientUpsert(t *testing.T) {
	st := New()
	userID := uuid.New()
	ctx := context.Background()

	// Two approved applications linked to the same identity, each with its
	// own token.
	event := &models.Event{Name: "Test Convention", StartsAt: time.Now().AddDate(0, 1, 0)}
	if err := st.CreateEvent(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	var tokens []string
	for _, typ := range []string{models.ApplicationTypeArtist, models.ApplicationTypeVolunteer} {
		app := &models.Application{
			EventID:         event.ID,
			UserID:          &userID,
			ApplicationType: typ,
			Status:          models.ApplicationStatusApproved,
			ApplicantName:   "Repeat Client",
			ApplicantEmail:  "repeat@example.com",
		}
		if err := st.CreateApplication(ctx, app); err != nil {
			t.Fatalf("create application: %v", err)
		}
		tok := &models.RegistrationToken{Token: "tok-" + typ, ApplicationID: app.ID, ExpiresAt: time.Now().Add(time.Hour)}
		if err := st.CreateToken(ctx, tok); err != nil {
			t.Fatalf("create token: %v", err)
		}
		tokens = append(tokens, tok.Token)
	}

	res1, err := st.CompleteRegistration(ctx, params(tokens[0]))
	if err != nil {
		t.Fatalf("first complete: %v", err)
	}
	res2, err := st.CompleteRegistration(ctx, params(tokens[1]))
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if *res1.ClientID != userID || *res2.ClientID != userID {
		t.Errorf("client ids = %v, %v, want %s", res1.ClientID, res2.ClientID, userID)
	}
	// One client row, two submissions, two tickets.
	if subs, _ := st.ListSubmissionsByEvent(ctx, event.ID); len(subs) != 2 {
		t.Errorf("submissions = %d, want 2", len(subs))
	}
	if tickets, _ := st.ListTicketsByEvent(ctx, event.ID); len(tickets) != 2 {
		t.Errorf("tickets = %d, want 2", len(tickets))
	}
}

func TestCreateTokenDuplicate(t *testing.T) {
	st := New()
	_, app := seed(t, st, time.Hour, nil)
	dup := &models.RegistrationToken{Token: "mem-test-token", ApplicationID: app.ID, ExpiresAt: time.Now().Add(time.Hour)}
	if err := st.CreateToken(context.Background(), dup); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	st := New()
	ctx := context.Background()
	u := &models.User{Email: "staff@example.com", FullName: "A", Role: models.RoleStaff}
	if err := st.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &models.User{Email: "Staff@Example.com", FullName: "B", Role: models.RoleStaff}
	if err := st.CreateUser(ctx, dup); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}
