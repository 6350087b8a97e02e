package web

import (
	"log/slog"
	"net/http"

	"groomdesk/internal/application/orchestrators"
	"groomdesk/internal/application/projections"
)

// handleAppointmentForm handles GET /api/appointments/form?id=|date=&time=&staff=
// and returns the modal's initial state.
func handleAppointmentForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	seed := orchestrators.SeedFromAction(projections.Action{
		AppointmentID: q.Get("id"),
		Date:          q.Get("date"),
		Time:          q.Get("time"),
		StaffID:       q.Get("staff"),
	})
	cal := calendarFor(sess)
	form, err := orchestrators.ExecuteOpenAppointmentForm(r.Context(), seed, orchestrators.OpenAppointmentFormDeps{
		Cache: cal.Cache(),
		API:   userClient(sess),
		Staff: cal,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// handleAppointments handles POST /api/appointments (create or update, by form mode).
func handleAppointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var form orchestrators.AppointmentForm
	if err := strictDecode(r, &form); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	cal := calendarFor(sess)
	result, err := orchestrators.ExecuteSubmitAppointment(r.Context(), form, orchestrators.SubmitAppointmentDeps{
		API:       userClient(sess),
		Staff:     cal,
		Templates: deps.Local,
		Sender:    deps.Sender,
		Calendar:  cal,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("appointment_saved", "appointment_id", result.Appointment.ID, "created", result.Created, "user_id", sess.UserID)
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// handleAppointmentStatus handles POST /api/appointments/status.
func handleAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var input orchestrators.UpdateAppointmentStatusInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	cal := calendarFor(sess)
	result, err := orchestrators.ExecuteUpdateAppointmentStatus(r.Context(), input, orchestrators.UpdateAppointmentStatusDeps{
		API:      userClient(sess),
		Cache:    cal.Cache(),
		Calendar: cal,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("appointment_status_changed", "appointment_id", result.AppointmentID, "status", input.Status, "user_id", sess.UserID)
	writeJSON(w, http.StatusOK, result)
}

// handleAppointmentDelete handles POST /api/appointments/delete.
func handleAppointmentDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodPost, http.MethodDelete)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var input orchestrators.DeleteAppointmentInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	cal := calendarFor(sess)
	result, err := orchestrators.ExecuteDeleteAppointment(r.Context(), input, orchestrators.DeleteAppointmentDeps{
		API:      userClient(sess),
		Cache:    cal.Cache(),
		Calendar: cal,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("appointment_deleted", "appointment_id", result.AppointmentID, "user_id", sess.UserID)
	writeJSON(w, http.StatusOK, result)
}
