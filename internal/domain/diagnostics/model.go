package diagnostics

import (
	"strings"
	"time"
)

// Exam maps to the exams table.
type Exam struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patient_id"`
	PatientName string    `json:"patient_name,omitempty"`
	ExamType    string    `json:"exam_type"`
	Laboratory  string    `json:"laboratory"`
	Status      string    `json:"status"`
	Results     string    `json:"results"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListFilter struct {
	PatientID int64
	Status    string
}

func (e *Exam) normalize() {
	e.ExamType = strings.TrimSpace(e.ExamType)
	e.Status = strings.TrimSpace(e.Status)
}
