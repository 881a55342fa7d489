package identity

import (
	"context"

	"github.com/clinic/clinic/pkg/pagination"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	List(ctx context.Context, pg pagination.Params) ([]*Patient, int, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
	// Dependents counts rows in other tables that reference the patient,
	// keyed by table name. Tables with no rows are omitted.
	Dependents(ctx context.Context, id int64) (map[string]int, error)
}
