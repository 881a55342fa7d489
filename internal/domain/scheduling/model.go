package scheduling

import (
	"strings"
	"time"
)

// Appointment maps to the appointments table. PatientName is filled on
// reads from the patients table.
type Appointment struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patient_id"`
	PatientName string    `json:"patient_name,omitempty"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListFilter narrows an appointment listing. Zero values match everything.
type ListFilter struct {
	PatientID int64
	Date      string
	Status    string
}

func (a *Appointment) normalize() {
	a.Type = strings.TrimSpace(a.Type)
	a.Status = strings.TrimSpace(a.Status)
}
