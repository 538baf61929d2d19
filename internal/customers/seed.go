package customers

import "voice-negotiator-go/internal/types"

// Seed returns the built-in demo customers used when no source is configured.
func Seed() []types.CustomerProfile {
	return []types.CustomerProfile{
		{
			ID:             1,
			Name:           "Luis Guillermo Pardo",
			BirthDate:      "1980-04-15",
			DocumentNumber: "123456789",
			Phone:          "555-1234",
			Email:          "luis.pardo@example.com",
			DebtAmount:     1000000.00,
			DueDate:        "2024-12-31",
			AccountStatus:  types.StatusInArrears,
			PaymentHistory: []types.Payment{
				{Date: "2024-01-15", Amount: 200000.00},
				{Date: "2024-06-15", Amount: 150000.00},
			},
		},
		{
			ID:             2,
			Name:           "María López",
			BirthDate:      "1990-07-22",
			DocumentNumber: "987654321",
			Phone:          "555-5678",
			Email:          "maria.lopez@example.com",
			DebtAmount:     500000.00,
			DueDate:        "2024-11-15",
			AccountStatus:  types.StatusPending,
			PaymentHistory: []types.Payment{
				{Date: "2023-11-15", Amount: 50000.00},
			},
		},
		{
			ID:             3,
			Name:           "Carlos Ramírez",
			BirthDate:      "1975-12-05",
			DocumentNumber: "111223344",
			Phone:          "555-4321",
			Email:          "carlos.ramirez@example.com",
			DebtAmount:     1500000.00,
			DueDate:        "2024-10-10",
			AccountStatus:  types.StatusInArrears,
			PaymentHistory: []types.Payment{
				{Date: "2023-12-01", Amount: 300000.00},
			},
		},
	}
}
