package models

// Account roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Account represents a human user owning balance
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
