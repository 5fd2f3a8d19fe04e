// Package repotest provides in-memory repositories with the same semantics
// as the postgres store: unique keys, foreign keys and compare-and-set
// transitions. It backs service and handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Store keeps every table behind one mutex.
type Store struct {
	mu            sync.Mutex
	users         map[uuid.UUID]model.User
	patients      map[uuid.UUID]model.Patient
	appointments  map[uuid.UUID]model.Appointment
	checkIns      map[uuid.UUID]model.CheckIn
	queue         map[uuid.UUID]model.QueueEntry
	consultations map[uuid.UUID]model.Consultation
	payments      map[uuid.UUID]model.Payment
	activity      []model.ActivityLog
	apiKeys       map[uuid.UUID]model.APIKey
	resetTokens   map[string]model.PasswordResetToken
}

func NewStore() *Store {
	return &Store{
		users:         map[uuid.UUID]model.User{},
		patients:      map[uuid.UUID]model.Patient{},
		appointments:  map[uuid.UUID]model.Appointment{},
		checkIns:      map[uuid.UUID]model.CheckIn{},
		queue:         map[uuid.UUID]model.QueueEntry{},
		consultations: map[uuid.UUID]model.Consultation{},
		payments:      map[uuid.UUID]model.Payment{},
		apiKeys:       map[uuid.UUID]model.APIKey{},
		resetTokens:   map[string]model.PasswordResetToken{},
	}
}

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Patients() repository.PatientRepository           { return patientRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository   { return appointmentRepo{s} }
func (s *Store) CheckIns() repository.CheckInRepository           { return checkInRepo{s} }
func (s *Store) Queue() repository.QueueRepository                { return queueRepo{s} }
func (s *Store) Consultations() repository.ConsultationRepository { return consultationRepo{s} }
func (s *Store) Payments() repository.PaymentRepository           { return paymentRepo{s} }
func (s *Store) Activity() repository.ActivityRepository          { return activityRepo{s} }
func (s *Store) APIKeys() repository.APIKeyRepository             { return apiKeyRepo{s} }
func (s *Store) ResetTokens() repository.PasswordResetRepository  { return resetRepo{s} }
func (s *Store) Dashboard() repository.DashboardRepository        { return dashboardRepo{s} }

// ActivityLogs returns a copy of every recorded activity entry.
func (s *Store) ActivityLogs() []model.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ActivityLog(nil), s.activity...)
}

func stamp(b *model.Base) {
	b.ID = uuid.New()
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
}

func page[T any](items []T, p model.Pagination) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (s *Store) patientExists(id uuid.UUID) error {
	if _, ok := s.patients[id]; !ok {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (s *Store) userExists(id uuid.UUID, resource string) error {
	if _, ok := s.users[id]; !ok {
		return apperrors.NotFound(resource, nil)
	}
	return nil
}

// users

type userRepo struct{ s *Store }

func (r userRepo) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.s.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r userRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if r.emailTaken(user.Email, uuid.Nil) {
		return apperrors.Conflict("a user with this email already exists", nil)
	}
	stamp(&user.Base)
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			u := u
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

func (r userRepo) Update(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[user.ID]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if r.emailTaken(user.Email, user.ID) {
		return apperrors.Conflict("a user with this email already exists", nil)
	}
	cur.Email, cur.Name, cur.Role = user.Email, user.Name, user.Role
	cur.UpdatedAt = time.Now().UTC()
	r.s.users[user.ID] = cur
	*user = cur
	return nil
}

func (r userRepo) SetActive(_ context.Context, id uuid.UUID, active bool) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	u.IsActive = active
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return &u, nil
}

func (r userRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	u.PasswordHash = hash
	r.s.users[id] = u
	return nil
}

func (r userRepo) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.LastLoginAt = &at
		r.s.users[id] = u
	}
	return nil
}

func (r userRepo) List(_ context.Context, f *model.UserFilters) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.User
	for _, u := range r.s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, f.Pagination), nil
}

// patients

type patientRepo struct{ s *Store }

func (r patientRepo) idNumberTaken(idNumber string, except uuid.UUID) bool {
	for id, p := range r.s.patients {
		if id != except && p.IDNumber == idNumber {
			return true
		}
	}
	return false
}

func (r patientRepo) Create(_ context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.idNumberTaken(p.IDNumber, uuid.Nil) {
		return apperrors.Conflict("a patient with this id number already exists", nil)
	}
	stamp(&p.Base)
	r.s.patients[p.ID] = *p
	return nil
}

func (r patientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return &p, nil
}

func (r patientRepo) GetByIDNumber(_ context.Context, idNumber string) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.patients {
		if p.IDNumber == idNumber {
			p := p
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("patient", nil)
}

func (r patientRepo) Update(_ context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.patients[p.ID]; !ok {
		return apperrors.NotFound("patient", nil)
	}
	if r.idNumberTaken(p.IDNumber, p.ID) {
		return apperrors.Conflict("a patient with this id number already exists", nil)
	}
	p.UpdatedAt = time.Now().UTC()
	r.s.patients[p.ID] = *p
	return nil
}

func (r patientRepo) List(_ context.Context, f *model.PatientFilters) ([]*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Patient
	search := strings.ToLower(f.Search)
	for _, p := range r.s.patients {
		if f.IDNumber != "" && p.IDNumber != f.IDNumber {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.FullName()+" "+p.IDNumber+" "+p.Phone), search) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return page(out, f.Pagination), nil
}

// appointments

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.patientExists(a.PatientID); err != nil {
		return err
	}
	if err := r.s.userExists(a.DoctorID, "doctor"); err != nil {
		return err
	}
	stamp(&a.Base)
	r.s.appointments[a.ID] = *a
	return nil
}

func (r appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return &a, nil
}

func (r appointmentRepo) Update(_ context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.appointments[a.ID]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	cur.DoctorID, cur.ScheduledAt, cur.DurationMinutes = a.DoctorID, a.ScheduledAt, a.DurationMinutes
	cur.Type, cur.Notes = a.Type, a.Notes
	cur.UpdatedAt = time.Now().UTC()
	r.s.appointments[a.ID] = cur
	*a = cur
	return nil
}

func (r appointmentRepo) Transition(_ context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error) {
	if !from.CanTransitionTo(to) {
		return nil, apperrors.InvalidTransition("appointment", string(from), string(to))
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	if a.Status != from {
		return nil, apperrors.InvalidTransition("appointment", string(a.Status), string(to))
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	r.s.appointments[id] = a
	return &a, nil
}

func (r appointmentRepo) List(_ context.Context, f *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && a.ScheduledAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !a.ScheduledAt.Before(f.To.AddDate(0, 0, 1)) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return page(out, f.Pagination), nil
}

// check-ins

type checkInRepo struct{ s *Store }

func (r checkInRepo) Create(_ context.Context, c *model.CheckIn, entry *model.QueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.patientExists(c.PatientID); err != nil {
		return err
	}
	if c.AppointmentID != nil {
		if _, ok := r.s.appointments[*c.AppointmentID]; !ok {
			return apperrors.NotFound("appointment", nil)
		}
	}
	if entry != nil && entry.DoctorID != nil {
		if err := r.s.userExists(*entry.DoctorID, "doctor"); err != nil {
			return err
		}
	}
	stamp(&c.Base)
	if c.ArrivedAt.IsZero() {
		c.ArrivedAt = c.CreatedAt
	}
	r.s.checkIns[c.ID] = *c
	if entry != nil {
		entry.CheckInID = c.ID
		entry.PatientID = c.PatientID
		admit(entry)
		r.s.queue[entry.ID] = *entry
	}
	return nil
}

func (r checkInRepo) Get(_ context.Context, id uuid.UUID) (*model.CheckIn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.checkIns[id]
	if !ok {
		return nil, apperrors.NotFound("check-in", nil)
	}
	return &c, nil
}

func (r checkInRepo) List(_ context.Context, f *model.CheckInFilters) ([]*model.CheckIn, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.CheckIn
	for _, c := range r.s.checkIns {
		if f.PatientID != uuid.Nil && c.PatientID != f.PatientID {
			continue
		}
		if f.Date != nil && !f.Date.IsZero() &&
			(c.ArrivedAt.Before(f.Date.Time) || !c.ArrivedAt.Before(f.Date.AddDate(0, 0, 1))) {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArrivedAt.After(out[j].ArrivedAt) })
	return page(out, f.Pagination), nil
}

// queue

type queueRepo struct{ s *Store }

func admit(e *model.QueueEntry) {
	stamp(&e.Base)
	e.Status = model.QueueStatusWaiting
	e.EnteredAt = e.CreatedAt
	e.StartedAt, e.CompletedAt, e.ActualWaitTime = nil, nil, nil
}

func (r queueRepo) Create(_ context.Context, e *model.QueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.patientExists(e.PatientID); err != nil {
		return err
	}
	if _, ok := r.s.checkIns[e.CheckInID]; !ok {
		return apperrors.NotFound("check-in", nil)
	}
	for _, other := range r.s.queue {
		if other.CheckInID == e.CheckInID && other.Status != model.QueueStatusCompleted {
			return apperrors.Conflict("check-in is already in the queue", nil)
		}
	}
	if e.DoctorID != nil {
		if err := r.s.userExists(*e.DoctorID, "doctor"); err != nil {
			return err
		}
	}
	admit(e)
	r.s.queue[e.ID] = *e
	return nil
}

func (r queueRepo) Get(_ context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.queue[id]
	if !ok {
		return nil, apperrors.NotFound("queue entry", nil)
	}
	return &e, nil
}

func (r queueRepo) sorted(keep func(model.QueueEntry) bool) []*model.QueueEntry {
	var out []*model.QueueEntry
	for _, e := range r.s.queue {
		if keep(e) {
			e := e
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return model.ServedBefore(out[i], out[j]) })
	return out
}

func (r queueRepo) List(_ context.Context, f *model.QueueFilters) ([]*model.QueueEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.sorted(func(e model.QueueEntry) bool {
		if f.Status != "" && e.Status != f.Status {
			return false
		}
		return f.DoctorID == uuid.Nil || (e.DoctorID != nil && *e.DoctorID == f.DoctorID)
	})
	return page(out, f.Pagination), nil
}

func (r queueRepo) Next(_ context.Context, doctorID *uuid.UUID) (*model.QueueEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.sorted(func(e model.QueueEntry) bool {
		if e.Status != model.QueueStatusWaiting {
			return false
		}
		return doctorID == nil || e.DoctorID == nil || *e.DoctorID == *doctorID
	})
	if len(out) == 0 {
		return nil, apperrors.NotFound("waiting queue entry", nil)
	}
	return out[0], nil
}

func (r queueRepo) Transition(_ context.Context, t model.QueueTransition) (*model.QueueEntry, error) {
	if !t.From.CanTransitionTo(t.To) {
		return nil, apperrors.InvalidTransition("queue", string(t.From), string(t.To))
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.queue[t.ID]
	if !ok {
		return nil, apperrors.NotFound("queue entry", nil)
	}
	if e.Status != t.From {
		return nil, apperrors.InvalidTransition("queue", string(e.Status), string(t.To))
	}

	at := t.At
	e.Status = t.To
	e.UpdatedAt = at
	switch t.To {
	case model.QueueStatusInProgress:
		e.StartedAt = &at
		if t.DoctorID != nil {
			e.DoctorID = t.DoctorID
		}
	case model.QueueStatusCompleted:
		e.CompletedAt = &at
		wait := model.WaitMinutes(e.EnteredAt, *e.StartedAt)
		e.ActualWaitTime = &wait
	case model.QueueStatusWaiting:
		return nil, apperrors.InvalidTransition("queue", string(t.From), string(t.To))
	}
	r.s.queue[t.ID] = e
	return &e, nil
}

func (r queueRepo) Update(_ context.Context, e *model.QueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.queue[e.ID]
	if !ok {
		return apperrors.NotFound("queue entry", nil)
	}
	if cur.Status == model.QueueStatusCompleted {
		return apperrors.Conflict("completed queue entries cannot be edited", nil)
	}
	cur.DoctorID, cur.Priority, cur.EstimatedWaitTime, cur.Notes = e.DoctorID, e.Priority, e.EstimatedWaitTime, e.Notes
	cur.UpdatedAt = time.Now().UTC()
	r.s.queue[e.ID] = cur
	*e = cur
	return nil
}

// SetEnteredAt rewrites an entry's admission time so tests can control
// ordering and wait times.
func (s *Store) SetEnteredAt(id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.queue[id]; ok {
		e.EnteredAt = at
		s.queue[id] = e
	}
}

// consultations

type consultationRepo struct{ s *Store }

func (r consultationRepo) Create(_ context.Context, c *model.Consultation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.patientExists(c.PatientID); err != nil {
		return err
	}
	if err := r.s.userExists(c.DoctorID, "doctor"); err != nil {
		return err
	}
	if _, ok := r.s.queue[c.QueueEntryID]; !ok {
		return apperrors.NotFound("queue entry", nil)
	}
	stamp(&c.Base)
	if c.Attachments == nil {
		c.Attachments = model.StringList{}
	}
	r.s.consultations[c.ID] = *c
	return nil
}

func (r consultationRepo) Get(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.consultations[id]
	if !ok {
		return nil, apperrors.NotFound("consultation", nil)
	}
	return &c, nil
}

func (r consultationRepo) Update(_ context.Context, c *model.Consultation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.consultations[c.ID]; !ok {
		return apperrors.NotFound("consultation", nil)
	}
	c.UpdatedAt = time.Now().UTC()
	r.s.consultations[c.ID] = *c
	return nil
}

func (r consultationRepo) List(_ context.Context, f *model.ConsultationFilters) ([]*model.Consultation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Consultation
	for _, c := range r.s.consultations {
		if f.PatientID != uuid.Nil && c.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != uuid.Nil && c.DoctorID != f.DoctorID {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Pagination), nil
}

// payments

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(_ context.Context, p *model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.patientExists(p.PatientID); err != nil {
		return err
	}
	if _, ok := r.s.checkIns[p.CheckInID]; !ok {
		return apperrors.NotFound("check-in", nil)
	}
	stamp(&p.Base)
	p.Amount = p.Amount.Round(model.AmountScale)
	r.s.payments[p.ID] = *p
	return nil
}

func (r paymentRepo) Get(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, apperrors.NotFound("payment", nil)
	}
	return &p, nil
}

func (r paymentRepo) List(_ context.Context, f *model.PaymentFilters) ([]*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.s.payments {
		if f.PatientID != uuid.Nil && p.PatientID != f.PatientID {
			continue
		}
		if f.CheckInID != uuid.Nil && p.CheckInID != f.CheckInID {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Pagination), nil
}

// activity

type activityRepo struct{ s *Store }

func (r activityRepo) Create(_ context.Context, e *model.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.s.activity = append(r.s.activity, *e)
	return nil
}

func (r activityRepo) List(_ context.Context, f *model.ActivityFilters) ([]*model.ActivityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.ActivityLog
	for i := len(r.s.activity) - 1; i >= 0; i-- {
		e := r.s.activity[i]
		if f.UserID != uuid.Nil && (e.UserID == nil || *e.UserID != f.UserID) {
			continue
		}
		if f.EntityType != "" && e.EntityType != f.EntityType {
			continue
		}
		if f.EntityID != uuid.Nil && (e.EntityID == nil || *e.EntityID != f.EntityID) {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, &e)
	}
	return page(out, f.Pagination), nil
}

// api keys

type apiKeyRepo struct{ s *Store }

func (r apiKeyRepo) Create(_ context.Context, k *model.APIKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.userExists(k.UserID, "user"); err != nil {
		return err
	}
	stamp(&k.Base)
	k.IsActive = true
	r.s.apiKeys[k.ID] = *k
	return nil
}

func (r apiKeyRepo) Get(_ context.Context, id uuid.UUID) (*model.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.apiKeys[id]
	if !ok {
		return nil, apperrors.NotFound("api key", nil)
	}
	return &k, nil
}

func (r apiKeyRepo) GetByHash(_ context.Context, hash string) (*model.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.apiKeys {
		if k.KeyHash == hash {
			k := k
			return &k, nil
		}
	}
	return nil, apperrors.NotFound("api key", nil)
}

func (r apiKeyRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.APIKey{}
	for _, k := range r.s.apiKeys {
		if k.UserID == userID {
			k := k
			out = append(out, &k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r apiKeyRepo) Revoke(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.apiKeys[id]
	if !ok {
		return apperrors.NotFound("api key", nil)
	}
	k.IsActive = false
	if k.RevokedAt == nil {
		k.RevokedAt = &at
	}
	r.s.apiKeys[id] = k
	return nil
}

func (r apiKeyRepo) TouchLastUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if k, ok := r.s.apiKeys[id]; ok {
		k.LastUsedAt = &at
		r.s.apiKeys[id] = k
	}
	return nil
}

// password reset tokens

type resetRepo struct{ s *Store }

func (r resetRepo) Create(_ context.Context, t *model.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	for h, old := range r.s.resetTokens {
		if old.UserID == t.UserID && old.UsedAt == nil {
			old.UsedAt = &t.CreatedAt
			r.s.resetTokens[h] = old
		}
	}
	r.s.resetTokens[t.TokenHash] = *t
	return nil
}

func (r resetRepo) Consume(_ context.Context, hash string, now time.Time) (uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.resetTokens[hash]
	if !ok || t.UsedAt != nil || !t.ExpiresAt.After(now) {
		return uuid.Nil, apperrors.Validation("reset token is invalid or expired", map[string]string{"token": "invalid or expired"})
	}
	t.UsedAt = &now
	r.s.resetTokens[hash] = t
	return t.UserID, nil
}

func (r resetRepo) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for h, t := range r.s.resetTokens {
		if t.ExpiresAt.Before(cutoff) || (t.UsedAt != nil && t.UsedAt.Before(cutoff)) {
			delete(r.s.resetTokens, h)
			n++
		}
	}
	return n, nil
}

// dashboard

type dashboardRepo struct{ s *Store }

func (r dashboardRepo) Stats(_ context.Context, dayStart, dayEnd time.Time) (*model.DashboardStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	in := func(t time.Time) bool { return !t.Before(dayStart) && t.Before(dayEnd) }

	stats := &model.DashboardStats{PaymentsTotalToday: decimal.Zero}
	for _, a := range r.s.appointments {
		if in(a.ScheduledAt) && a.Status != model.AppointmentStatusCancelled {
			stats.AppointmentsToday++
		}
	}
	var waitSum, waitCount int
	for _, e := range r.s.queue {
		switch e.Status {
		case model.QueueStatusWaiting:
			stats.Waiting++
		case model.QueueStatusInProgress:
			stats.InProgress++
		case model.QueueStatusCompleted:
			if e.CompletedAt != nil && in(*e.CompletedAt) {
				stats.CompletedToday++
				if e.ActualWaitTime != nil {
					waitSum += *e.ActualWaitTime
					waitCount++
				}
			}
		}
	}
	if waitCount > 0 {
		stats.AverageWaitMinutes = float64(waitSum) / float64(waitCount)
	}
	for _, p := range r.s.payments {
		if in(p.CreatedAt) {
			stats.PaymentsTotalToday = stats.PaymentsTotalToday.Add(p.Amount)
		}
	}
	return stats, nil
}
