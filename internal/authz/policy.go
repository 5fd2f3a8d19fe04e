// Package authz holds the role policy for every protected capability and
// carries the resolved caller through request contexts.
package authz

import (
	"sort"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Capability names one protected action of the API.
type Capability string

const (
	AuthMe             Capability = "auth.me"
	APIKeysManage      Capability = "apikeys.manage"
	PatientsRead       Capability = "patients.read"
	PatientsWrite      Capability = "patients.write"
	AppointmentsRead   Capability = "appointments.read"
	AppointmentsWrite  Capability = "appointments.write"
	AppointmentsStatus Capability = "appointments.status"
	CheckInsRead       Capability = "checkins.read"
	CheckInsWrite      Capability = "checkins.write"
	QueueRead          Capability = "queue.read"
	QueueAdmit         Capability = "queue.admit"
	QueueTransition    Capability = "queue.transition"
	QueueEdit          Capability = "queue.edit"
	ConsultationsRead  Capability = "consultations.read"
	ConsultationsWrite Capability = "consultations.write"
	PaymentsRead       Capability = "payments.read"
	PaymentsWrite      Capability = "payments.write"
	UsersRead          Capability = "users.read"
	UsersManage        Capability = "users.manage"
	ActivityRead       Capability = "activity.read"
	DashboardRead      Capability = "dashboard.read"
)

var (
	everyone    = []model.Role{model.RoleStaff, model.RoleAdmin, model.RoleDoctor}
	frontDesk   = []model.Role{model.RoleStaff, model.RoleAdmin}
	clinicians  = []model.Role{model.RoleAdmin, model.RoleDoctor}
	adminsOnly  = []model.Role{model.RoleAdmin}
	doctorsOnly = []model.Role{model.RoleDoctor}
)

// Policy maps each capability to the roles allowed to use it. A capability
// missing from the table is denied to everyone.
var Policy = map[Capability][]model.Role{
	AuthMe:             everyone,
	APIKeysManage:      everyone,
	PatientsRead:       everyone,
	PatientsWrite:      frontDesk,
	AppointmentsRead:   everyone,
	AppointmentsWrite:  frontDesk,
	AppointmentsStatus: everyone,
	CheckInsRead:       everyone,
	CheckInsWrite:      frontDesk,
	QueueRead:          everyone,
	QueueAdmit:         frontDesk,
	QueueTransition:    everyone,
	QueueEdit:          frontDesk,
	ConsultationsRead:  clinicians,
	ConsultationsWrite: doctorsOnly,
	PaymentsRead:       frontDesk,
	PaymentsWrite:      frontDesk,
	UsersRead:          adminsOnly,
	UsersManage:        adminsOnly,
	ActivityRead:       adminsOnly,
	DashboardRead:      everyone,
}

// Allowed reports whether role may use capability.
func Allowed(capability Capability, role model.Role) bool {
	for _, r := range Policy[capability] {
		if r == role {
			return true
		}
	}
	return false
}

// Capabilities lists what role may do, for clients that filter navigation.
func Capabilities(role model.Role) []Capability {
	var caps []Capability
	for c := range Policy {
		if Allowed(c, role) {
			caps = append(caps, c)
		}
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}
