package types

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Speaker labels used when the transcript is rendered for prompts and export.
const (
	UserLabel  = "Cliente"
	AgentLabel = "Val"
)

type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Label renders the turn the way it appears in the transcript, e.g. "Cliente: hola".
func (t Turn) Label() string {
	switch t.Role {
	case RoleAgent:
		return AgentLabel + ": " + t.Text
	default:
		return UserLabel + ": " + t.Text
	}
}
