package api

import (
	"context"
	"net/http"
	"net/url"

	"groomdesk/internal/domain/appointment"
)

type appointmentList struct {
	Appointments []appointment.Appointment `json:"appointments"`
}

type appointmentOne struct {
	Appointment appointment.Appointment `json:"appointment"`
}

// ListAppointmentsByDate fetches one date (YYYY-MM-DD). Empty staffID means every staff member.
func (c *Client) ListAppointmentsByDate(ctx context.Context, date, staffID string) ([]appointment.Appointment, error) {
	q := url.Values{"date": {date}}
	return c.listAppointments(ctx, q, staffID)
}

// ListAppointmentsByMonth fetches one month (YYYY-MM). Empty staffID means every staff member.
func (c *Client) ListAppointmentsByMonth(ctx context.Context, month, staffID string) ([]appointment.Appointment, error) {
	q := url.Values{"month": {month}}
	return c.listAppointments(ctx, q, staffID)
}

func (c *Client) listAppointments(ctx context.Context, q url.Values, staffID string) ([]appointment.Appointment, error) {
	if staffID != "" && staffID != "all" {
		q.Set("staffId", staffID)
	}
	var out appointmentList
	if err := c.do(ctx, request{method: http.MethodGet, route: "/appointments", path: "/appointments", query: q}, &out); err != nil {
		return nil, err
	}
	return out.Appointments, nil
}

// GetAppointment fetches one appointment. Stale ids fail with ErrNotFound.
func (c *Client) GetAppointment(ctx context.Context, id string) (appointment.Appointment, error) {
	var out appointmentOne
	err := c.do(ctx, request{method: http.MethodGet, route: "/appointments/{id}", path: "/appointments/" + url.PathEscape(id)}, &out)
	return out.Appointment, err
}

// CreateAppointment creates an appointment and returns it with its server-assigned ID.
func (c *Client) CreateAppointment(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	body, err := jsonBody(a)
	if err != nil {
		return appointment.Appointment{}, err
	}
	var out appointmentOne
	if err := c.do(ctx, request{method: http.MethodPost, route: "/appointments", path: "/appointments", body: body}, &out); err != nil {
		return appointment.Appointment{}, err
	}
	if out.Appointment.ID == "" {
		out.Appointment = a
	}
	return out.Appointment, nil
}

// UpdateAppointment replaces an existing appointment.
// PRE: a.ID is non-empty
func (c *Client) UpdateAppointment(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	body, err := jsonBody(a)
	if err != nil {
		return appointment.Appointment{}, err
	}
	var out appointmentOne
	if err := c.do(ctx, request{method: http.MethodPut, route: "/appointments/{id}", path: "/appointments/" + url.PathEscape(a.ID), body: body}, &out); err != nil {
		return appointment.Appointment{}, err
	}
	if out.Appointment.ID == "" {
		out.Appointment = a
	}
	return out.Appointment, nil
}

// UpdateAppointmentStatus sets reserved/completed/cancelled.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	body, err := jsonBody(map[string]string{"status": status})
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodPatch, route: "/appointments/{id}/status", path: "/appointments/" + url.PathEscape(id) + "/status", body: body}, nil)
}

// DeleteAppointment removes an appointment.
func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, route: "/appointments/{id}", path: "/appointments/" + url.PathEscape(id)}, nil)
}
