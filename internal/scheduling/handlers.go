package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/clinicdesk/registry/pkg/types"
)

// RegisterRoutes configures HTTP routes for the scheduling endpoints
func (s *Service) RegisterRoutes(api *mux.Router) {
	// Appointment routes
	api.HandleFunc("/appointments", s.createAppointmentHandler).Methods("POST")
	api.HandleFunc("/appointments", s.getAppointmentsHandler).Methods("GET")
	api.HandleFunc("/appointments/upcoming", s.upcomingAppointmentsHandler).Methods("GET")
	api.HandleFunc("/appointments/{id}", s.getAppointmentHandler).Methods("GET")
	api.HandleFunc("/appointments/{id}", s.deleteAppointmentHandler).Methods("DELETE")
	api.HandleFunc("/appointments/{id}/move", s.moveAppointmentHandler).Methods("PUT")
	api.HandleFunc("/appointments/{id}/repeat", s.repeatAppointmentHandler).Methods("POST")
	api.HandleFunc("/appointments/{id}/status", s.setStatusHandler).Methods("PUT")
	api.HandleFunc("/appointments/{id}/cancel", s.cancelAppointmentHandler).Methods("POST")

	// Availability routes
	api.HandleFunc("/doctors/{doctorId}/available-slots", s.getAvailableSlotsHandler).Methods("GET")
	api.HandleFunc("/doctors/{doctorId}/availability", s.checkAvailabilityHandler).Methods("POST")

	// Schedule routes
	api.HandleFunc("/schedules", s.createScheduleHandler).Methods("POST")
	api.HandleFunc("/schedules", s.getSchedulesHandler).Methods("GET")
	api.HandleFunc("/schedules/bulk", s.importSchedulesHandler).Methods("POST")
	api.HandleFunc("/schedules/cleanup", s.purgeSchedulesHandler).Methods("POST")
	api.HandleFunc("/schedules/{id}", s.getScheduleHandler).Methods("GET")
	api.HandleFunc("/schedules/{id}", s.updateScheduleHandler).Methods("PUT")
	api.HandleFunc("/schedules/{id}", s.deleteScheduleHandler).Methods("DELETE")

	s.logger.Info("Scheduling routes configured")
}

// createAppointmentHandler handles appointment creation
func (s *Service) createAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var apt types.Appointment
	if err := json.NewDecoder(r.Body).Decode(&apt); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.CreateAppointment(&apt, s.userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, created)
}

// getAppointmentHandler handles appointment retrieval
func (s *Service) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	apt, err := s.GetAppointment(mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, apt)
}

// getAppointmentsHandler handles filtered appointment listing
func (s *Service) getAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	filters := &types.AppointmentFilters{
		PatientID: r.URL.Query().Get("patient_id"),
		DoctorID:  r.URL.Query().Get("doctor_id"),
		Status:    r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid from timestamp", err)
			return
		}
		filters.FromDate = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid to timestamp", err)
			return
		}
		filters.ToDate = t
	}

	appointments, err := s.GetAppointments(filters)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, appointments)
}

// moveAppointmentHandler handles rescheduling an appointment
func (s *Service) moveAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewStart time.Time `json:"new_start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	apt, err := s.MoveAppointment(mux.Vars(r)["id"], req.NewStart, s.userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, apt)
}

// repeatAppointmentHandler books a follow-up visit from an existing one
func (s *Service) repeatAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start   time.Time `json:"start"`
		Purpose string    `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	apt, err := s.RepeatAppointment(mux.Vars(r)["id"], req.Start, req.Purpose, s.userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, apt)
}

// setStatusHandler transitions an appointment's status
func (s *Service) setStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.SetAppointmentStatus(mux.Vars(r)["id"], req.Status, s.userIDFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Appointment status updated"})
}

// cancelAppointmentHandler handles appointment cancellation
func (s *Service) cancelAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.CancelAppointment(mux.Vars(r)["id"], s.userIDFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Appointment cancelled"})
}

// deleteAppointmentHandler removes an appointment record
func (s *Service) deleteAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteAppointment(mux.Vars(r)["id"], s.userIDFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Appointment deleted"})
}

// upcomingAppointmentsHandler returns pending appointments due for reminders
func (s *Service) upcomingAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	lookahead := s.cfg.ReminderLookahead()
	if v := r.URL.Query().Get("lookahead_minutes"); v != "" {
		d, err := time.ParseDuration(v + "m")
		if err != nil || d <= 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid lookahead_minutes", err)
			return
		}
		lookahead = d
	}

	appointments, err := s.UpcomingAppointments(s.now(), lookahead)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, appointments)
}

// getAvailableSlotsHandler returns a doctor's free slots for a date
func (s *Service) getAvailableSlotsHandler(w http.ResponseWriter, r *http.Request) {
	doctorID := mux.Vars(r)["doctorId"]

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "date query parameter is required", nil)
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
		return
	}

	slots, err := s.GetAvailableSlots(doctorID, date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, slots)
}

// checkAvailabilityHandler reports whether an interval is bookable
func (s *Service) checkAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	var slot types.TimeSlot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if slot.EndTime.IsZero() {
		slot.EndTime = slot.StartTime.Add(s.cfg.SlotLength())
	}

	available, err := s.CheckAvailability(mux.Vars(r)["doctorId"], &slot)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]bool{"available": available})
}

// createScheduleHandler publishes a doctor's working window
func (s *Service) createScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var schedule types.Schedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.CreateSchedule(&schedule, s.userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, created)
}

// getScheduleHandler retrieves a schedule by ID
func (s *Service) getScheduleHandler(w http.ResponseWriter, r *http.Request) {
	schedule, err := s.GetSchedule(mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, schedule)
}

// getSchedulesHandler handles filtered schedule listing
func (s *Service) getSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	filters := &types.ScheduleFilters{
		DoctorID: r.URL.Query().Get("doctor_id"),
	}
	if v := r.URL.Query().Get("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid date_from, expected YYYY-MM-DD", err)
			return
		}
		filters.DateFrom = t
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid date_to, expected YYYY-MM-DD", err)
			return
		}
		filters.DateTo = t
	}

	schedules, err := s.GetSchedules(filters)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, schedules)
}

// updateScheduleHandler applies a partial schedule update
func (s *Service) updateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var updates types.ScheduleUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.UpdateSchedule(mux.Vars(r)["id"], &updates, s.userIDFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Schedule updated"})
}

// deleteScheduleHandler removes a schedule
func (s *Service) deleteScheduleHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteSchedule(mux.Vars(r)["id"], s.userIDFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Schedule deleted"})
}

// importSchedulesHandler handles bulk schedule upload
func (s *Service) importSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	var rows []types.ScheduleImportRow
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, err := s.ImportSchedules(rows, s.userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, report)
}

// purgeSchedulesHandler removes schedules dated before today
func (s *Service) purgeSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := s.PurgeStaleSchedules(s.now(), s.userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"removed":     len(ids),
		"removed_ids": ids,
	})
}

// userIDFromRequest extracts the caller identity placed in the request
// context by the auth middleware
func (s *Service) userIDFromRequest(r *http.Request) string {
	if claims, ok := types.ClaimsFromContext(r.Context()); ok {
		return claims.UserID
	}
	return "anonymous"
}

// writeJSONResponse writes a JSON response
func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes an error response
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	s.logger.Errorf("%s: %v", message, err)

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	s.writeJSONResponse(w, statusCode, response)
}

// writeServiceError maps a service error to an HTTP status by its category
func (s *Service) writeServiceError(w http.ResponseWriter, err error) {
	var regErr *types.RegistryError
	if errors.As(err, &regErr) {
		status := http.StatusInternalServerError
		switch regErr.Type {
		case types.ErrorTypeValidation:
			status = http.StatusBadRequest
		case types.ErrorTypeConflict:
			status = http.StatusConflict
		case types.ErrorTypeNotFound:
			status = http.StatusNotFound
		}
		s.writeErrorResponse(w, status, regErr.Message, regErr.Cause)
		return
	}
	s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", err)
}
