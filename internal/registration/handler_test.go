package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store/memory"
	"github.com/inkfest/backend/pkg/response"
)

func newTestRouter(st *memory.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(st, nil, nil, nil), nil)
	r := gin.New()
	r.GET("/registration/:token", h.Get)
	r.POST("/registration/complete", h.Complete)
	return r
}

func seedHandlerToken(t *testing.T, st *memory.Store, ttl time.Duration) string {
	t.Helper()
	ctx := context.Background()
	event := &models.Event{Name: "Northern Ink", City: "Leeds", StartsAt: time.Now().AddDate(0, 1, 0)}
	if err := st.CreateEvent(ctx, event); err != nil {
		t.Fatalf("create event: %v", err)
	}
	app := &models.Application{
		EventID:         event.ID,
		ApplicationType: models.ApplicationTypeTrader,
		Status:          models.ApplicationStatusApproved,
		ApplicantName:   "Mo Hart",
		ApplicantEmail:  "mo@example.com",
	}
	if err := st.CreateApplication(ctx, app); err != nil {
		t.Fatalf("create application: %v", err)
	}
	tok := &models.RegistrationToken{Token: "handler-test-token", ApplicationID: app.ID, ExpiresAt: time.Now().Add(ttl)}
	if err := st.CreateToken(ctx, tok); err != nil {
		t.Fatalf("create token: %v", err)
	}
	return tok.Token
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/registration/"+token, nil)
	r.ServeHTTP(w, req)
	return w
}

func doComplete(r *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/registration/complete", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestGetRegistrationOK(t *testing.T) {
	st := memory.New()
	token := seedHandlerToken(t, st, time.Hour)
	r := newTestRouter(st)

	w := doGet(r, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	var body response.Body
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.Success {
		t.Error("success = false")
	}
	view, ok := body.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", body.Data)
	}
	if view["event_name"] != "Northern Ink" {
		t.Errorf("event_name = %v", view["event_name"])
	}
	if view["token"] != token {
		t.Errorf("token = %v", view["token"])
	}
}

func TestGetRegistrationNotFound(t *testing.T) {
	r := newTestRouter(memory.New())
	if w := doGet(r, "missing"); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetRegistrationExpired(t *testing.T) {
	st := memory.New()
	token := seedHandlerToken(t, st, -time.Minute)
	r := newTestRouter(st)
	if w := doGet(r, token); w.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", w.Code)
	}
}

func TestGetRegistrationUsed(t *testing.T) {
	st := memory.New()
	token := seedHandlerToken(t, st, time.Hour)
	r := newTestRouter(st)

	w := doComplete(r, CompleteRequest{Token: token, RegistrationData: validData()})
	if w.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", w.Code, w.Body.String())
	}
	if w := doGet(r, token); w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestCompleteRegistrationOK(t *testing.T) {
	st := memory.New()
	token := seedHandlerToken(t, st, time.Hour)
	r := newTestRouter(st)

	w := doComplete(r, CompleteRequest{Token: token, RegistrationData: validData()})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body response.Body
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data, ok := body.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", body.Data)
	}
	if data["registration_id"] == "" || data["registration_id"] == nil {
		t.Error("registration_id missing")
	}
}

// On the commit path every token problem is a plain 400; the applicant is
// past the point where distinct statuses help.
func TestCompleteRegistrationTokenProblemsAre400(t *testing.T) {
	st := memory.New()
	expired := seedHandlerToken(t, st, -time.Minute)
	r := newTestRouter(st)

	cases := []struct {
		name string
		body interface{}
	}{
		{"missing token", CompleteRequest{RegistrationData: validData()}},
		{"unknown token", CompleteRequest{Token: "missing", RegistrationData: validData()}},
		{"expired token", CompleteRequest{Token: expired, RegistrationData: validData()}},
		{"agreement not accepted", CompleteRequest{Token: expired, RegistrationData: Data{Name: "A", Email: "a@example.com"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := doComplete(r, tc.body); w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestCompleteRegistrationUsedTokenIs400(t *testing.T) {
	st := memory.New()
	token := seedHandlerToken(t, st, time.Hour)
	r := newTestRouter(st)

	if w := doComplete(r, CompleteRequest{Token: token, RegistrationData: validData()}); w.Code != http.StatusOK {
		t.Fatalf("first complete = %d", w.Code)
	}
	if w := doComplete(r, CompleteRequest{Token: token, RegistrationData: validData()}); w.Code != http.StatusBadRequest {
		t.Fatalf("second complete = %d, want 400", w.Code)
	}
}
