package clinical

import (
	"context"

	"github.com/clinic/clinic/pkg/pagination"
)

type HistoryRepository interface {
	Create(ctx context.Context, h *HistoryEntry) error
	GetByID(ctx context.Context, id int64) (*HistoryEntry, error)
	List(ctx context.Context, f ListFilter, pg pagination.Params) ([]*HistoryEntry, int, error)
	Update(ctx context.Context, h *HistoryEntry) error
	Delete(ctx context.Context, id int64) error
}

type PatientLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type AppointmentLookup interface {
	PatientOf(ctx context.Context, appointmentID int64) (int64, error)
}
