package documents

import (
	"context"

	"github.com/clinic/clinic/pkg/pagination"
)

type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id int64) (*Report, error)
	List(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Report, int, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id int64) error
}
