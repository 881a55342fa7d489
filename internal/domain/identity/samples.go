package identity

// SamplePatients returns the demo records loaded by the seed command.
func SamplePatients() []Patient {
	return []Patient{
		{
			Name: "María González", Email: "maria@email.com", Phone: "+54 11 1234-5678",
			DNI: "12345678", BirthDate: "1990-05-15", Gender: "Femenino",
			Address: "Av. Corrientes 1234", BloodType: "A+",
			Allergies: "Ninguna", ChronicDiseases: "Ninguna", CurrentMedications: "Ninguno",
		},
		{
			Name: "Carlos Rodríguez", Email: "carlos@email.com", Phone: "+54 11 2345-6789",
			DNI: "23456789", BirthDate: "1985-08-22", Gender: "Masculino",
			Address: "Av. Santa Fe 5678", BloodType: "B+",
			Allergies: "Penicilina", ChronicDiseases: "Ninguna", CurrentMedications: "Ninguno",
		},
		{
			Name: "Ana Martínez", Email: "ana@email.com", Phone: "+54 11 3456-7890",
			DNI: "34567890", BirthDate: "1992-12-03", Gender: "Femenino",
			Address: "Av. Córdoba 9012", BloodType: "O+",
			Allergies: "Ninguna", ChronicDiseases: "Diabetes", CurrentMedications: "Metformina",
		},
	}
}
