// Package memory implements store.Store with in-process maps, one per table.
// It is the development and test stand-in for the Postgres store, selected by
// STORAGE_DRIVER=memory at startup. A single mutex guards every table, and
// CompleteRegistration holds it across the whole redemption, giving the same
// all-or-nothing and at-most-once behavior as the Postgres transaction.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkfest/backend/internal/models"
	"github.com/inkfest/backend/internal/store"
)

// Store keeps each table as a map keyed by primary key.
type Store struct {
	mu sync.RWMutex

	users           map[uuid.UUID]models.User
	events          map[uuid.UUID]models.Event
	applications    map[uuid.UUID]models.Application
	tokens          map[string]models.RegistrationToken
	requirements    map[string]models.RegistrationRequirements // eventID|type
	paymentSettings map[uuid.UUID]models.PaymentSettings
	clients         map[uuid.UUID]models.Client
	submissions     map[uuid.UUID]models.RegistrationSubmission
	tickets         map[uuid.UUID]models.Ticket
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:           make(map[uuid.UUID]models.User),
		events:          make(map[uuid.UUID]models.Event),
		applications:    make(map[uuid.UUID]models.Application),
		tokens:          make(map[string]models.RegistrationToken),
		requirements:    make(map[string]models.RegistrationRequirements),
		paymentSettings: make(map[uuid.UUID]models.PaymentSettings),
		clients:         make(map[uuid.UUID]models.Client),
		submissions:     make(map[uuid.UUID]models.RegistrationSubmission),
		tickets:         make(map[uuid.UUID]models.Ticket),
	}
}

func reqKey(eventID uuid.UUID, applicationType string) string {
	return eventID.String() + "|" + applicationType
}

// --- users ---

// CreateUser inserts a user; email must be unique.
func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrConflict
		}
	}
	now := time.Now()
	u.ID = uuid.New()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = *u
	return nil
}

// GetUserByID returns a user by ID.
func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

// GetUserByEmail returns a user by email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

// ListUsers returns all users sorted by name.
func (s *Store) ListUsers(_ context.Context) ([]models.UserPublic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.UserPublic
	for _, u := range s.users {
		list = append(list, u.ToPublic())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].FullName < list[j].FullName })
	return list, nil
}

// --- events and reference data ---

// CreateEvent inserts an event.
func (s *Store) CreateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e.ID = uuid.New()
	e.CreatedAt = now
	e.UpdatedAt = now
	s.events[e.ID] = *e
	return nil
}

// GetEvent returns an event by ID.
func (s *Store) GetEvent(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

// ListEvents returns all events, newest first.
func (s *Store) ListEvents(_ context.Context) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Event
	for _, e := range s.events {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartsAt.After(list[j].StartsAt) })
	return list, nil
}

// UpdateEvent updates an existing event.
func (s *Store) UpdateEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.events[e.ID]
	if !ok {
		return store.ErrNotFound
	}
	e.CreatedAt = existing.CreatedAt
	e.CreatedBy = existing.CreatedBy
	e.UpdatedAt = time.Now()
	s.events[e.ID] = *e
	return nil
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// UpsertRequirements creates or replaces a requirements row.
func (s *Store) UpsertRequirements(_ context.Context, r *models.RegistrationRequirements) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requirements[reqKey(r.EventID, r.ApplicationType)] = *r
	return nil
}

// GetRequirements returns the requirements row for an event+type pair.
func (s *Store) GetRequirements(_ context.Context, eventID uuid.UUID, applicationType string) (*models.RegistrationRequirements, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requirements[reqKey(eventID, applicationType)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

// UpsertPaymentSettings creates or replaces an event's payment settings.
func (s *Store) UpsertPaymentSettings(_ context.Context, p *models.PaymentSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentSettings[p.EventID] = *p
	return nil
}

// GetPaymentSettings returns an event's payment settings.
func (s *Store) GetPaymentSettings(_ context.Context, eventID uuid.UUID) (*models.PaymentSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.paymentSettings[eventID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

// --- applications and tokens ---

// CreateApplication inserts an application.
func (s *Store) CreateApplication(_ context.Context, a *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	a.ID = uuid.New()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.applications[a.ID] = *a
	return nil
}

// GetApplication returns an application by ID.
func (s *Store) GetApplication(_ context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

// ListApplicationsByEvent returns applications for an event, optionally
// filtered by status, newest first.
func (s *Store) ListApplicationsByEvent(_ context.Context, eventID uuid.UUID, status string) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Application
	for _, a := range s.applications {
		if a.EventID != eventID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

// UpdateApplicationStatus sets an application's review status.
func (s *Store) UpdateApplicationStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	s.applications[id] = a
	return nil
}

// CreateToken inserts a registration token.
func (s *Store) CreateToken(_ context.Context, t *models.RegistrationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[t.Token]; ok {
		return store.ErrConflict
	}
	t.CreatedAt = time.Now()
	s.tokens[t.Token] = *t
	return nil
}

// --- registration core ---

// GetTokenView loads a token joined with its application and event name.
func (s *Store) GetTokenView(_ context.Context, token string) (*models.TokenView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	a, ok := s.applications[t.ApplicationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	e, ok := s.events[a.EventID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.TokenView{
		RegistrationToken: t,
		Application:       a,
		EventName:         e.Name,
	}, nil
}

// CompleteRegistration redeems a token. The write lock is held for the whole
// sequence, so the used_at check-and-set is atomic and partial state is
// impossible.
func (s *Store) CompleteRegistration(_ context.Context, p store.CompleteParams) (*store.CompleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[p.Token]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.UsedAt != nil {
		return nil, store.ErrTokenUsed
	}
	now := time.Now()
	if !now.Before(t.ExpiresAt) {
		return nil, store.ErrTokenExpired
	}
	a, ok := s.applications[t.ApplicationID]
	if !ok {
		return nil, store.ErrNotFound
	}

	res := &store.CompleteResult{EventID: a.EventID}

	if a.UserID != nil {
		c := p.Client
		c.ID = *a.UserID
		if existing, ok := s.clients[c.ID]; ok {
			c.CreatedAt = existing.CreatedAt
		} else {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		s.clients[c.ID] = c
		res.ClientID = a.UserID
	}

	sub := models.RegistrationSubmission{
		ID:                uuid.New(),
		ApplicationID:     a.ID,
		ClientID:          a.UserID,
		ConfirmedDetails:  p.ConfirmedDetails,
		AgreementAccepted: p.AgreementAccepted,
		PaymentMethod:     p.PaymentMethod,
		PaymentAmount:     p.PaymentAmount,
		SubmittedAt:       now,
		ProfileDeadline:   p.ProfileDeadline,
	}
	if p.AgreementAccepted {
		acceptedAt := now
		sub.AgreementAcceptedAt = &acceptedAt
	}
	s.submissions[sub.ID] = sub
	res.SubmissionID = sub.ID

	ticket := models.Ticket{
		ID:           uuid.New(),
		EventID:      a.EventID,
		ClientID:     a.UserID,
		TicketType:   a.ApplicationType,
		PriceGBP:     0,
		PurchaseDate: now,
		Status:       models.TicketStatusActive,
	}
	s.tickets[ticket.ID] = ticket
	res.TicketID = ticket.ID

	usedAt := now
	t.UsedAt = &usedAt
	s.tokens[p.Token] = t

	a.RegistrationCompleted = &now
	a.UpdatedAt = now
	s.applications[a.ID] = a

	return res, nil
}

// GetSubmission returns a submission by ID.
func (s *Store) GetSubmission(_ context.Context, id uuid.UUID) (*models.RegistrationSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sub, nil
}

// ListSubmissionsByEvent returns submissions for an event, newest first.
func (s *Store) ListSubmissionsByEvent(_ context.Context, eventID uuid.UUID) ([]models.RegistrationSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.RegistrationSubmission
	for _, sub := range s.submissions {
		a, ok := s.applications[sub.ApplicationID]
		if !ok || a.EventID != eventID {
			continue
		}
		list = append(list, sub)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SubmittedAt.After(list[j].SubmittedAt) })
	return list, nil
}

// ListTicketsByEvent returns tickets for an event, newest first.
func (s *Store) ListTicketsByEvent(_ context.Context, eventID uuid.UUID) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Ticket
	for _, t := range s.tickets {
		if t.EventID == eventID {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PurchaseDate.After(list[j].PurchaseDate) })
	return list, nil
}
