package models

// Customer est l'identité résolue par le middleware JWT.
type Customer struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
}

func (c Customer) IsAdmin() bool {
	return c.Role == "admin"
}
