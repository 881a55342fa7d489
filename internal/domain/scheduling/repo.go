package scheduling

import (
	"context"

	"github.com/clinic/clinic/pkg/pagination"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	// GetForUpdate reads the appointment and locks its row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Appointment, error)
	List(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Appointment, int, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id int64) error
	// PatientOf returns the patient an appointment belongs to.
	PatientOf(ctx context.Context, id int64) (int64, error)
	Dependents(ctx context.Context, id int64) (map[string]int, error)
}

// PatientLookup is the part of the patient store appointments depend on.
type PatientLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
