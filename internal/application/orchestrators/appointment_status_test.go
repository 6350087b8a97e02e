package orchestrators

import (
	"context"
	"errors"
	"testing"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/domain/appointment"
)

// TestUpdateAppointmentStatus_RefreshesCachedDate looks the date up in the cache when the caller omits it.
func TestUpdateAppointmentStatus_RefreshesCachedDate(t *testing.T) {
	remote := newMockAppointmentsAPI()
	cal := &mockCalendar{}
	res, err := ExecuteUpdateAppointmentStatus(context.Background(),
		UpdateAppointmentStatusInput{AppointmentID: "a1", Status: appointment.StatusCompleted},
		UpdateAppointmentStatusDeps{API: remote, Cache: mockCache{"a1": stored("a1", "2024-03-05")}, Calendar: cal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.statuses["a1"] != appointment.StatusCompleted {
		t.Errorf("status not sent: %v", remote.statuses)
	}
	if len(cal.refreshed) != 1 || cal.refreshed[0] != "2024-03-05" {
		t.Errorf("refreshed = %v", cal.refreshed)
	}
	if res.AppointmentID != "a1" || len(res.Warnings) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

// TestUpdateAppointmentStatus_InvalidStatus fails before the network.
func TestUpdateAppointmentStatus_InvalidStatus(t *testing.T) {
	remote := newMockAppointmentsAPI()
	_, err := ExecuteUpdateAppointmentStatus(context.Background(),
		UpdateAppointmentStatusInput{AppointmentID: "a1", Status: "pending"},
		UpdateAppointmentStatusDeps{API: remote})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["status"] == "" {
		t.Fatalf("expected status validation error, got %v", err)
	}
	if len(remote.statuses) != 0 {
		t.Errorf("API called: %v", remote.statuses)
	}
}

// TestUpdateAppointmentStatus_APIFailure skips the refresh.
func TestUpdateAppointmentStatus_APIFailure(t *testing.T) {
	remote := newMockAppointmentsAPI()
	remote.changeErr = &api.Error{Status: 500}
	cal := &mockCalendar{}
	_, err := ExecuteUpdateAppointmentStatus(context.Background(),
		UpdateAppointmentStatusInput{AppointmentID: "a1", Status: appointment.StatusCancelled, Date: "2024-03-05"},
		UpdateAppointmentStatusDeps{API: remote, Calendar: cal})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(cal.refreshed) != 0 {
		t.Errorf("refreshed = %v", cal.refreshed)
	}
}

// TestDeleteAppointment deletes and refreshes the given date.
func TestDeleteAppointment(t *testing.T) {
	remote := newMockAppointmentsAPI()
	cal := &mockCalendar{err: errors.New("timeout")}
	res, err := ExecuteDeleteAppointment(context.Background(),
		DeleteAppointmentInput{AppointmentID: "a1", Date: "2024-03-05"},
		DeleteAppointmentDeps{API: remote, Calendar: cal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "a1" {
		t.Errorf("deleted = %v", remote.deleted)
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != WarnRefreshFailed {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

// TestDeleteAppointment_RequiresID rejects an empty id.
func TestDeleteAppointment_RequiresID(t *testing.T) {
	_, err := ExecuteDeleteAppointment(context.Background(), DeleteAppointmentInput{},
		DeleteAppointmentDeps{API: newMockAppointmentsAPI()})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["appointmentId"] == "" {
		t.Fatalf("expected appointmentId validation error, got %v", err)
	}
}
