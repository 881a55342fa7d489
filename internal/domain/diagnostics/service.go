package diagnostics

import (
	"context"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/rules"
	"github.com/clinic/clinic/pkg/pagination"
)

type Service struct {
	exams    ExamRepository
	patients PatientLookup
	tx       db.TxRunner
	policy   rules.Policy
}

func NewService(exams ExamRepository, patients PatientLookup, tx db.TxRunner) *Service {
	return &Service{exams: exams, patients: patients, tx: tx, policy: rules.Permissive}
}

func (s *Service) SetPolicy(p rules.Policy) {
	s.policy = p
}

func (s *Service) validate(ctx context.Context, e *Exam) error {
	e.normalize()
	if e.PatientID == 0 {
		return apperr.Required("patient_id")
	}
	if e.ExamType == "" {
		return apperr.Required("exam_type")
	}
	ok, err := s.patients.Exists(ctx, e.PatientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("patient", e.PatientID)
	}
	return nil
}

func (s *Service) CreateExam(ctx context.Context, e *Exam) error {
	status, err := rules.ExamLifecycle.Normalize(e.Status)
	if err != nil {
		return err
	}
	e.Status = status
	if err := s.validate(ctx, e); err != nil {
		return err
	}
	return s.exams.Create(ctx, e)
}

func (s *Service) GetExam(ctx context.Context, id int64) (*Exam, error) {
	return s.exams.GetByID(ctx, id)
}

func (s *Service) ListExams(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Exam, int, error) {
	if f.Status != "" && !rules.ExamLifecycle.Valid(f.Status) {
		_, err := rules.ExamLifecycle.Normalize(f.Status)
		return nil, 0, err
	}
	return s.exams.List(ctx, f, pg)
}

// UpdateExam replaces the record, keeping the current status when none is
// given and checking any change against the policy.
func (s *Service) UpdateExam(ctx context.Context, e *Exam) error {
	if err := s.validate(ctx, e); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.exams.GetForUpdate(ctx, e.ID)
		if err != nil {
			return err
		}
		if e.Status == "" {
			e.Status = current.Status
		}
		if err := s.policy.CheckTransition(rules.ExamLifecycle, current.Status, e.Status); err != nil {
			return err
		}
		if err := s.exams.Update(ctx, e); err != nil {
			return err
		}
		fresh, err := s.exams.GetByID(ctx, e.ID)
		if err != nil {
			return err
		}
		*e = *fresh
		return nil
	})
}

func (s *Service) DeleteExam(ctx context.Context, id int64) error {
	return s.exams.Delete(ctx, id)
}
