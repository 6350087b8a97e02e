package orchestrators

import (
	"context"
	"log/slog"
)

// AppointmentStatusUpdater changes an appointment's status on the API.
type AppointmentStatusUpdater interface {
	UpdateAppointmentStatus(ctx context.Context, id, status string) error
}

// AppointmentDeleter removes an appointment on the API.
type AppointmentDeleter interface {
	DeleteAppointment(ctx context.Context, id string) error
}

// UpdateAppointmentStatusInput carries the status change.
// Date is the appointment's date, used to refresh the calendar; it is looked up
// in the session cache when empty.
type UpdateAppointmentStatusInput struct {
	AppointmentID string `json:"appointmentId" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=reserved completed cancelled"`
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateAppointmentStatusDeps holds dependencies for UpdateAppointmentStatus.
type UpdateAppointmentStatusDeps struct {
	API      AppointmentStatusUpdater
	Cache    CachedAppointments
	Calendar CalendarRefresher
}

// AppointmentChangeResult reports a completed status change or delete.
type AppointmentChangeResult struct {
	AppointmentID string   `json:"appointmentId"`
	Warnings      []string `json:"warnings,omitempty"`
}

// ExecuteUpdateAppointmentStatus sets the status and refreshes the affected range.
// PRE: deps.API is non-nil
// POST: returns *ValidationError before any network call when the input is invalid
func ExecuteUpdateAppointmentStatus(ctx context.Context, input UpdateAppointmentStatusInput, deps UpdateAppointmentStatusDeps) (AppointmentChangeResult, error) {
	if err := validateStruct(input).OrNil(); err != nil {
		return AppointmentChangeResult{}, err
	}
	date := appointmentDate(input.AppointmentID, input.Date, deps.Cache)
	if err := deps.API.UpdateAppointmentStatus(ctx, input.AppointmentID, input.Status); err != nil {
		slog.Warn("appointment_status_failed", "appointment_id", input.AppointmentID, "status", input.Status, "err", err)
		return AppointmentChangeResult{}, err
	}
	slog.Info("appointment_status_changed", "appointment_id", input.AppointmentID, "status", input.Status)
	return AppointmentChangeResult{
		AppointmentID: input.AppointmentID,
		Warnings:      refreshAfterChange(ctx, deps.Calendar, date),
	}, nil
}

// DeleteAppointmentInput identifies the appointment to delete.
type DeleteAppointmentInput struct {
	AppointmentID string `json:"appointmentId" validate:"required"`
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// DeleteAppointmentDeps holds dependencies for DeleteAppointment.
type DeleteAppointmentDeps struct {
	API      AppointmentDeleter
	Cache    CachedAppointments
	Calendar CalendarRefresher
}

// ExecuteDeleteAppointment deletes the appointment and refreshes the affected range.
// PRE: deps.API is non-nil
// POST: the deleted record disappears from the cache only through the refresh
func ExecuteDeleteAppointment(ctx context.Context, input DeleteAppointmentInput, deps DeleteAppointmentDeps) (AppointmentChangeResult, error) {
	if err := validateStruct(input).OrNil(); err != nil {
		return AppointmentChangeResult{}, err
	}
	date := appointmentDate(input.AppointmentID, input.Date, deps.Cache)
	if err := deps.API.DeleteAppointment(ctx, input.AppointmentID); err != nil {
		slog.Warn("appointment_delete_failed", "appointment_id", input.AppointmentID, "err", err)
		return AppointmentChangeResult{}, err
	}
	slog.Info("appointment_deleted", "appointment_id", input.AppointmentID)
	return AppointmentChangeResult{
		AppointmentID: input.AppointmentID,
		Warnings:      refreshAfterChange(ctx, deps.Calendar, date),
	}, nil
}

func appointmentDate(id, date string, cache CachedAppointments) string {
	if date != "" || cache == nil {
		return date
	}
	if a, ok := cache.FindByID(id); ok {
		return a.Date
	}
	return ""
}

func refreshAfterChange(ctx context.Context, cal CalendarRefresher, date string) []string {
	if cal == nil || date == "" {
		return nil
	}
	if refreshDates(ctx, cal, []string{date}) != nil {
		return []string{WarnRefreshFailed}
	}
	return nil
}
