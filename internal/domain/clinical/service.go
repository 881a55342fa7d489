package clinical

import (
	"context"
	"fmt"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/pkg/pagination"
)

type Service struct {
	histories    HistoryRepository
	patients     PatientLookup
	appointments AppointmentLookup
}

func NewService(histories HistoryRepository, patients PatientLookup, appts AppointmentLookup) *Service {
	return &Service{histories: histories, patients: patients, appointments: appts}
}

// validate checks required fields and references. A linked appointment
// must belong to the entry's patient.
func (s *Service) validate(ctx context.Context, h *HistoryEntry) error {
	h.normalize()
	if h.PatientID == 0 {
		return apperr.Required("patient_id")
	}
	if h.Reason == "" {
		return apperr.Required("reason")
	}
	ok, err := s.patients.Exists(ctx, h.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("patient", h.PatientID)
	}
	if h.AppointmentID == nil {
		return nil
	}
	owner, err := s.appointments.PatientOf(ctx, *h.AppointmentID)
	if err != nil {
		return err
	}
	if owner != h.PatientID {
		return apperr.Validation("appointment_patient_mismatch",
			fmt.Sprintf("appointment %d belongs to patient %d, not %d", *h.AppointmentID, owner, h.PatientID))
	}
	return nil
}

func (s *Service) CreateEntry(ctx context.Context, h *HistoryEntry) error {
	if err := s.validate(ctx, h); err != nil {
		return err
	}
	return s.histories.Create(ctx, h)
}

func (s *Service) GetEntry(ctx context.Context, id int64) (*HistoryEntry, error) {
	return s.histories.GetByID(ctx, id)
}

func (s *Service) ListEntries(ctx context.Context, f ListFilter, pg pagination.Params) ([]*HistoryEntry, int, error) {
	return s.histories.List(ctx, f, pg)
}

func (s *Service) UpdateEntry(ctx context.Context, h *HistoryEntry) error {
	if err := s.validate(ctx, h); err != nil {
		return err
	}
	return s.histories.Update(ctx, h)
}

func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	return s.histories.Delete(ctx, id)
}
