package documents

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/pkg/pagination"
)

var emptyObject = json.RawMessage(`{}`)

type Service struct {
	reports ReportRepository
}

func NewService(reports ReportRepository) *Service {
	return &Service{reports: reports}
}

func validateReport(r *Report) error {
	r.normalize()
	if r.ReportType == "" {
		return apperr.Required("report_type")
	}
	if r.Title == "" {
		return apperr.Required("title")
	}
	trimmed := bytes.TrimSpace(r.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		r.Data = emptyObject
		return nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return apperr.Invalid("data", "must be a JSON object")
	}
	r.Data = json.RawMessage(trimmed)
	return nil
}

func (s *Service) CreateReport(ctx context.Context, r *Report) error {
	if err := validateReport(r); err != nil {
		return err
	}
	return s.reports.Create(ctx, r)
}

func (s *Service) GetReport(ctx context.Context, id int64) (*Report, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *Service) ListReports(ctx context.Context, f ListFilter, pg pagination.Params) ([]*Report, int, error) {
	return s.reports.List(ctx, f, pg)
}

func (s *Service) UpdateReport(ctx context.Context, r *Report) error {
	if err := validateReport(r); err != nil {
		return err
	}
	return s.reports.Update(ctx, r)
}

func (s *Service) DeleteReport(ctx context.Context, id int64) error {
	return s.reports.Delete(ctx, id)
}
