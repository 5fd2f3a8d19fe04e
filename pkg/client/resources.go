package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

const (
	pathAuth         = "/api/auth"
	pathAPIKeys      = "/api/api-keys"
	pathPatients     = "/api/patients"
	pathAppointments = "/api/appointments"
	pathCheckIns     = "/api/check-ins"
	pathQueue        = "/api/queue"
	pathPayments     = "/api/payments"
	pathDashboard    = "/api/dashboard"
	pathActivity     = "/api/activity"
)

// Session is the caller as the server sees it.
type Session struct {
	User         *model.User `json:"user"`
	Capabilities []string    `json:"capabilities"`
}

// CheckSession asks the server who the credentials belong to. A rejected
// credential returns ErrUnauthenticated. Any other error, including a
// network failure, leaves the credentials in place.
func (c *Client) CheckSession(ctx context.Context) (*Session, error) {
	if !c.HasCredentials() {
		return nil, ErrUnauthenticated
	}
	data, err := c.do(ctx, http.MethodGet, pathAuth+"/me", nil, nil)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			c.ClearCredentials()
		}
		return nil, err
	}
	var s Session
	if err := decodeData(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Login exchanges an email and password for a session token and switches
// the client to it.
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	var res model.LoginResponse
	if err := c.send(ctx, http.MethodPost, pathAuth+"/login",
		model.LoginRequest{Email: email, Password: password}, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *Client) ListAPIKeys(ctx context.Context) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	if err := c.get(ctx, pathAPIKeys, nil, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *Client) CreateAPIKey(ctx context.Context, name string) (*model.CreatedAPIKey, error) {
	var created model.CreatedAPIKey
	if err := c.send(ctx, http.MethodPost, pathAPIKeys, model.CreateAPIKeyRequest{Name: name}, &created, pathAPIKeys); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	return c.send(ctx, http.MethodDelete, pathAPIKeys+"/"+id.String(), nil, nil, pathAPIKeys)
}

func (c *Client) ListPatients(ctx context.Context, search string, page model.Pagination) ([]*model.Patient, error) {
	q := pageQuery(page)
	if search != "" {
		q.Set("search", search)
	}
	var patients []*model.Patient
	if err := c.get(ctx, pathPatients, q, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

func (c *Client) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var p model.Patient
	if err := c.get(ctx, pathPatients+"/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	var p model.Patient
	if err := c.send(ctx, http.MethodPost, pathPatients, req, &p, pathPatients); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) PatientHistory(ctx context.Context, id uuid.UUID) (*model.PatientHistory, error) {
	var h model.PatientHistory
	if err := c.get(ctx, pathPatients+"/"+id.String()+"/history", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) ListAppointments(ctx context.Context, status model.AppointmentStatus, page model.Pagination) ([]*model.Appointment, error) {
	q := pageQuery(page)
	if status != "" {
		q.Set("status", string(status))
	}
	var apts []*model.Appointment
	if err := c.get(ctx, pathAppointments, q, &apts); err != nil {
		return nil, err
	}
	return apts, nil
}

func (c *Client) SetAppointmentStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	var apt model.Appointment
	if err := c.send(ctx, http.MethodPost, pathAppointments+"/"+id.String()+"/status",
		model.AppointmentStatusRequest{Status: status}, &apt,
		pathAppointments, pathPatients, pathDashboard); err != nil {
		return nil, err
	}
	return &apt, nil
}

func (c *Client) CheckIn(ctx context.Context, req *model.CreateCheckInRequest) (*model.CheckInResult, error) {
	var res model.CheckInResult
	if err := c.send(ctx, http.MethodPost, pathCheckIns, req, &res,
		pathCheckIns, pathQueue, pathAppointments, pathDashboard); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListQueue(ctx context.Context, status model.QueueStatus) ([]*model.QueueEntry, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	var entries []*model.QueueEntry
	if err := c.get(ctx, pathQueue, q, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// NextInQueue is never cached; the head of the queue changes under other
// clients.
func (c *Client) NextInQueue(ctx context.Context, doctorID *uuid.UUID) (*model.QueueEntry, error) {
	q := url.Values{}
	if doctorID != nil {
		q.Set("doctor_id", doctorID.String())
	}
	data, err := c.do(ctx, http.MethodGet, pathQueue+"/next", q, nil)
	if err != nil {
		return nil, err
	}
	var entry model.QueueEntry
	if err := decodeData(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) StartQueueEntry(ctx context.Context, id uuid.UUID, doctorID *uuid.UUID) (*model.QueueEntry, error) {
	var body interface{}
	if doctorID != nil {
		body = map[string]uuid.UUID{"doctor_id": *doctorID}
	}
	var entry model.QueueEntry
	if err := c.send(ctx, http.MethodPost, pathQueue+"/"+id.String()+"/start", body, &entry,
		pathQueue, pathDashboard); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) CompleteQueueEntry(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	var entry model.QueueEntry
	if err := c.send(ctx, http.MethodPost, pathQueue+"/"+id.String()+"/complete", nil, &entry,
		pathQueue, pathDashboard); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) CreatePayment(ctx context.Context, req *model.CreatePaymentRequest) (*model.Payment, error) {
	var p model.Payment
	if err := c.send(ctx, http.MethodPost, pathPayments, req, &p,
		pathPayments, pathPatients, pathDashboard); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var s model.DashboardStats
	if err := c.get(ctx, pathDashboard+"/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListActivity(ctx context.Context, entityType string, page model.Pagination) ([]*model.ActivityLog, error) {
	q := pageQuery(page)
	if entityType != "" {
		q.Set("entity_type", entityType)
	}
	var logs []*model.ActivityLog
	if err := c.get(ctx, pathActivity, q, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func pageQuery(p model.Pagination) url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	return q
}
