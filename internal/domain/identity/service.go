package identity

import (
	"context"
	"errors"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/rules"
	"github.com/clinic/clinic/pkg/pagination"
)

type Service struct {
	patients PatientRepository
	tx       db.TxRunner
}

func NewService(patients PatientRepository, tx db.TxRunner) *Service {
	return &Service{patients: patients, tx: tx}
}

func validatePatient(p *Patient) error {
	p.normalize()
	if p.Name == "" {
		return apperr.Required("name")
	}
	if p.BirthDate != "" {
		if _, err := rules.CheckDate("birth_date", p.BirthDate); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, pg pagination.Params) ([]*Patient, int, error) {
	return s.patients.List(ctx, pg)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

// DeletePatient refuses to delete a patient that appointments, histories,
// invoices or exams still point at.
func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		deps, err := s.patients.Dependents(ctx, id)
		if err != nil {
			return err
		}
		if len(deps) > 0 {
			return apperr.DependencyExists("patient", id, deps)
		}
		return s.patients.Delete(ctx, id)
	})
}

// Exists reports whether the patient is on file. Other domains use it to
// check references before writing.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.patients.Exists(ctx, id)
}

// Seed inserts the sample patients, skipping any whose dni is already on
// file. It returns how many were created.
func (s *Service) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, p := range SamplePatients() {
		p := p
		err := s.CreatePatient(ctx, &p)
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperr.ErrUniqueness):
		default:
			return created, err
		}
	}
	return created, nil
}
