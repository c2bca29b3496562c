package registry

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/clinicdesk/registry/pkg/types"
)

// RegisterRoutes configures HTTP routes for the directory endpoints
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/doctors", s.createDoctorHandler).Methods("POST")
	api.HandleFunc("/doctors", s.listDoctorsHandler).Methods("GET")
	api.HandleFunc("/doctors/{id}", s.getDoctorHandler).Methods("GET")
	api.HandleFunc("/doctors/{id}", s.updateDoctorHandler).Methods("PUT")
	api.HandleFunc("/doctors/{id}", s.deactivateDoctorHandler).Methods("DELETE")

	api.HandleFunc("/patients", s.createPatientHandler).Methods("POST")
	api.HandleFunc("/patients", s.searchPatientsHandler).Methods("GET")
	api.HandleFunc("/patients/{id}", s.getPatientHandler).Methods("GET")
	api.HandleFunc("/patients/{id}", s.updatePatientHandler).Methods("PUT")

	api.HandleFunc("/statistics", s.statisticsHandler).Methods("GET")

	s.logger.Info("Directory routes configured")
}

func (s *Service) createDoctorHandler(w http.ResponseWriter, r *http.Request) {
	var doctor types.Doctor
	if err := json.NewDecoder(r.Body).Decode(&doctor); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.CreateDoctor(&doctor, s.userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, created)
}

func (s *Service) listDoctorsHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	doctors, err := s.ListDoctors(activeOnly)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, doctors)
}

func (s *Service) getDoctorHandler(w http.ResponseWriter, r *http.Request) {
	doctor, err := s.GetDoctor(mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, doctor)
}

func (s *Service) updateDoctorHandler(w http.ResponseWriter, r *http.Request) {
	var doctor types.Doctor
	if err := json.NewDecoder(r.Body).Decode(&doctor); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.UpdateDoctor(mux.Vars(r)["id"], &doctor, s.userIDFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Doctor updated"})
}

func (s *Service) deactivateDoctorHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.DeactivateDoctor(mux.Vars(r)["id"], s.userIDFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Doctor deactivated"})
}

func (s *Service) createPatientHandler(w http.ResponseWriter, r *http.Request) {
	var patient types.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := s.CreatePatient(&patient, s.userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, created)
}

func (s *Service) searchPatientsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	patients, err := s.SearchPatients(query, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, patients)
}

func (s *Service) getPatientHandler(w http.ResponseWriter, r *http.Request) {
	patient, err := s.GetPatient(mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, patient)
}

func (s *Service) updatePatientHandler(w http.ResponseWriter, r *http.Request) {
	var patient types.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.UpdatePatient(mux.Vars(r)["id"], &patient, s.userIDFromRequest(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Patient updated"})
}

func (s *Service) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.GetStatistics()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, stats)
}

func (s *Service) userIDFromRequest(r *http.Request) string {
	if claims, ok := types.ClaimsFromContext(r.Context()); ok {
		return claims.UserID
	}
	return "anonymous"
}

func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

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
