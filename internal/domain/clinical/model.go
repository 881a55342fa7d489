package clinical

import (
	"strings"
	"time"
)

// HistoryEntry maps to the clinical_histories table.
type HistoryEntry struct {
	ID            int64     `json:"id"`
	PatientID     int64     `json:"patient_id"`
	PatientName   string    `json:"patient_name,omitempty"`
	AppointmentID *int64    `json:"appointment_id"`
	Reason        string    `json:"reason"`
	Diagnosis     string    `json:"diagnosis"`
	Treatment     string    `json:"treatment"`
	Observations  string    `json:"observations"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListFilter struct {
	PatientID int64
}

func (h *HistoryEntry) normalize() {
	h.Reason = strings.TrimSpace(h.Reason)
	if h.AppointmentID != nil && *h.AppointmentID == 0 {
		h.AppointmentID = nil
	}
}
