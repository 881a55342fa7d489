package scheduling

import (
	"context"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/rules"
	"github.com/clinic/clinic/pkg/pagination"
)

type Service struct {
	appointments AppointmentRepository
	patients     PatientLookup
	tx           db.TxRunner
	policy       rules.Policy
}

func NewService(appts AppointmentRepository, patients PatientLookup, tx db.TxRunner) *Service {
	return &Service{appointments: appts, patients: patients, tx: tx, policy: rules.Permissive}
}

// SetPolicy selects how status updates are checked.
func (s *Service) SetPolicy(p rules.Policy) {
	s.policy = p
}

func (s *Service) validate(ctx context.Context, a *Appointment) error {
	a.normalize()
	if a.PatientID == 0 {
		return apperr.Required("patient_id")
	}
	date, err := rules.CheckDate("date", a.Date)
	if err != nil {
		return err
	}
	a.Date = date
	clock, err := rules.CheckClock("time", a.Time)
	if err != nil {
		return err
	}
	a.Time = clock
	if a.Type == "" {
		return apperr.Required("type")
	}
	ok, err := s.patients.Exists(ctx, a.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("patient", a.PatientID)
	}
	return nil
}

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	status, err := rules.AppointmentLifecycle.Normalize(a.Status)
	if err != nil {
		return err
	}
	a.Status = status
	if err := s.validate(ctx, a); err != nil {
		return err
	}
	return s.appointments.Create(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Appointment, int, error) {
	if f.Date != "" {
		date, err := rules.CheckDate("date", f.Date)
		if err != nil {
			return nil, 0, err
		}
		f.Date = date
	}
	if f.Status != "" && !rules.AppointmentLifecycle.Valid(f.Status) {
		_, err := rules.AppointmentLifecycle.Normalize(f.Status)
		return nil, 0, err
	}
	return s.appointments.List(ctx, f, pg)
}

// UpdateAppointment replaces the record. An empty status keeps the current
// one; any other status change is checked against the configured policy.
func (s *Service) UpdateAppointment(ctx context.Context, a *Appointment) error {
	if err := s.validate(ctx, a); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.appointments.GetForUpdate(ctx, a.ID)
		if err != nil {
			return err
		}
		if a.Status == "" {
			a.Status = current.Status
		}
		if err := s.policy.CheckTransition(rules.AppointmentLifecycle, current.Status, a.Status); err != nil {
			return err
		}
		if err := s.appointments.Update(ctx, a); err != nil {
			return err
		}
		fresh, err := s.appointments.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		*a = *fresh
		return nil
	})
}

// DeleteAppointment refuses while histories or invoices reference the
// appointment.
func (s *Service) DeleteAppointment(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		deps, err := s.appointments.Dependents(ctx, id)
		if err != nil {
			return err
		}
		if len(deps) > 0 {
			return apperr.DependencyExists("appointment", id, deps)
		}
		return s.appointments.Delete(ctx, id)
	})
}

// PatientOf returns the owner of an appointment. Histories and invoices use
// it to check that an appointment belongs to their patient.
func (s *Service) PatientOf(ctx context.Context, id int64) (int64, error) {
	return s.appointments.PatientOf(ctx, id)
}
