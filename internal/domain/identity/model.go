package identity

import (
	"strings"
	"time"
)

// Patient maps to the patients table.
type Patient struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	DNI                string    `json:"dni"`
	BirthDate          string    `json:"birth_date"`
	Gender             string    `json:"gender"`
	Address            string    `json:"address"`
	BloodType          string    `json:"blood_type"`
	Allergies          string    `json:"allergies"`
	ChronicDiseases    string    `json:"chronic_diseases"`
	CurrentMedications string    `json:"current_medications"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (p *Patient) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.DNI = strings.TrimSpace(p.DNI)
	p.Email = strings.TrimSpace(p.Email)
	p.BirthDate = strings.TrimSpace(p.BirthDate)
}
