package rbac

import "fmt"

// Role is the closed set of registry roles
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleRegistrar Role = "registrar"
	RoleDoctor    Role = "doctor"
	RolePatient   Role = "patient"
)

// Capability names one operation a role may perform
type Capability string

const (
	CapBookAppointment      Capability = "appointment:book"
	CapMoveAppointment      Capability = "appointment:move"
	CapRepeatAppointment    Capability = "appointment:repeat"
	CapCancelAppointment    Capability = "appointment:cancel"
	CapSetAppointmentStatus Capability = "appointment:set_status"
	CapDeleteAppointment    Capability = "appointment:delete"
	CapViewAppointments     Capability = "appointment:view"
	CapManageSchedules      Capability = "schedule:manage"
	CapImportSchedules      Capability = "schedule:import"
	CapPurgeSchedules       Capability = "schedule:purge"
	CapViewSchedules        Capability = "schedule:view"
	CapManageDoctors        Capability = "doctor:manage"
	CapManagePatients       Capability = "patient:manage"
	CapViewStatistics       Capability = "statistics:view"
)

// capabilities is evaluated once at startup; handlers look roles up here
// instead of comparing role strings inline.
var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: grant(
		CapBookAppointment, CapMoveAppointment, CapRepeatAppointment,
		CapCancelAppointment, CapSetAppointmentStatus, CapDeleteAppointment,
		CapViewAppointments,
		CapManageSchedules, CapImportSchedules, CapPurgeSchedules, CapViewSchedules,
		CapManageDoctors, CapManagePatients, CapViewStatistics,
	),
	RoleRegistrar: grant(
		CapBookAppointment, CapMoveAppointment, CapRepeatAppointment,
		CapCancelAppointment, CapSetAppointmentStatus,
		CapViewAppointments,
		CapManageSchedules, CapImportSchedules, CapPurgeSchedules, CapViewSchedules,
		CapManagePatients, CapViewStatistics,
	),
	RoleDoctor: grant(
		CapViewAppointments, CapSetAppointmentStatus, CapViewSchedules,
		CapViewStatistics,
	),
	RolePatient: grant(
		CapBookAppointment, CapMoveAppointment, CapRepeatAppointment,
		CapCancelAppointment, CapViewAppointments, CapViewSchedules,
	),
}

func grant(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// ParseRole maps a role string onto the closed role set
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleRegistrar, RoleDoctor, RolePatient:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// Allowed reports whether the role holds the capability
func Allowed(role Role, cap Capability) bool {
	caps, ok := capabilities[role]
	if !ok {
		return false
	}
	return caps[cap]
}

// Capabilities returns the capability set granted to a role
func Capabilities(role Role) []Capability {
	caps := capabilities[role]
	out := make([]Capability, 0, len(caps))
	for c := range caps {
		out = append(out, c)
	}
	return out
}
