package scheduling

import (
	"github.com/clinicdesk/registry/pkg/interfaces"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/types"
)

// LogNotifier implements the Notifier interface by recording each event in
// the structured log. Production deployments swap in an SMS or email backend
// behind the same interface.
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(log *logger.Logger) interfaces.Notifier {
	return &LogNotifier{logger: log}
}

// SendAppointmentConfirmation records a booking confirmation
func (n *LogNotifier) SendAppointmentConfirmation(apt *types.Appointment) error {
	n.logger.WithComponent("notifications").WithFields(map[string]interface{}{
		"appointment_id": apt.ID,
		"patient_id":     apt.PatientID,
		"start_time":     apt.StartTime,
	}).Info("Appointment confirmation")
	return nil
}

// SendAppointmentReminder records an upcoming appointment reminder
func (n *LogNotifier) SendAppointmentReminder(apt *types.Appointment) error {
	n.logger.WithComponent("notifications").WithFields(map[string]interface{}{
		"appointment_id": apt.ID,
		"patient_id":     apt.PatientID,
		"start_time":     apt.StartTime,
	}).Info("Appointment reminder")
	return nil
}

// SendAppointmentChange records a move or cancellation notice
func (n *LogNotifier) SendAppointmentChange(apt *types.Appointment, changeType string) error {
	n.logger.WithComponent("notifications").WithFields(map[string]interface{}{
		"appointment_id": apt.ID,
		"patient_id":     apt.PatientID,
		"change_type":    changeType,
	}).Info("Appointment change notice")
	return nil
}
