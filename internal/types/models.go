package types

type AccountStatus string

const (
	StatusInArrears AccountStatus = "En mora"
	StatusPending   AccountStatus = "Pendiente"
)

type Payment struct {
	Date   string  `json:"Fecha" yaml:"fecha"`
	Amount float64 `json:"Monto" yaml:"monto"`
}

// CustomerProfile is a debtor record. Profiles are owned by the customer
// directory and never mutated while the process runs.
type CustomerProfile struct {
	ID             int           `json:"ID_Cliente" yaml:"id"`
	Name           string        `json:"Nombre_Cliente" yaml:"nombre"`
	BirthDate      string        `json:"Fecha_Nacimiento" yaml:"fecha_nacimiento"`
	DocumentNumber string        `json:"Número_Documento" yaml:"numero_documento"`
	Phone          string        `json:"Teléfono_Contacto" yaml:"telefono"`
	Email          string        `json:"Correo_Electrónico" yaml:"correo"`
	DebtAmount     float64       `json:"Monto_Deuda" yaml:"monto_deuda"`
	DueDate        string        `json:"Fecha_Vencimiento" yaml:"fecha_vencimiento"`
	AccountStatus  AccountStatus `json:"Estado_Cuenta" yaml:"estado_cuenta"`
	PaymentHistory []Payment     `json:"Historial_Pagos" yaml:"historial_pagos"`
}

// Clone returns a deep copy so callers cannot alias the directory's history slice.
func (c CustomerProfile) Clone() CustomerProfile {
	out := c
	if c.PaymentHistory != nil {
		out.PaymentHistory = append([]Payment(nil), c.PaymentHistory...)
	}
	return out
}

type CustomerSummary struct {
	ID         int    `json:"ID_Cliente"`
	Name       string `json:"Nombre_Cliente"`
	DebtAmount string `json:"Monto_Deuda"`
}

type CostMetrics struct {
	Words         int     `json:"words"`
	Tokens        int     `json:"tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// InteractionResult is built fresh for every request and never stored.
// AudioPath is nil when synthesis failed; UserText is only set for audio input.
type InteractionResult struct {
	UserText          string      `json:"user_text,omitempty"`
	Text              string      `json:"text"`
	AudioPath         *string     `json:"audio_path"`
	SentimentAnalysis string      `json:"sentiment_analysis"`
	Costs             CostMetrics `json:"costs"`
}
