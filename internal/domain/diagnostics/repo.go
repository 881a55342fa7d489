package diagnostics

import (
	"context"

	"github.com/clinic/clinic/pkg/pagination"
)

type ExamRepository interface {
	Create(ctx context.Context, e *Exam) error
	GetByID(ctx context.Context, id int64) (*Exam, error)
	GetForUpdate(ctx context.Context, id int64) (*Exam, error)
	List(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Exam, int, error)
	Update(ctx context.Context, e *Exam) error
	Delete(ctx context.Context, id int64) error
}

type PatientLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
