package documents

import (
	"encoding/json"
	"strings"
	"time"
)

// Report maps to the reports table. Data is an opaque JSON object.
type Report struct {
	ID         int64           `json:"id"`
	ReportType string          `json:"report_type"`
	Title      string          `json:"title"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type ListFilter struct {
	ReportType string
}

func (r *Report) normalize() {
	r.ReportType = strings.TrimSpace(r.ReportType)
	r.Title = strings.TrimSpace(r.Title)
}
