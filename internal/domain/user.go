package domain

import "time"

type Plan string

const (
	PlanHobby Plan = "HOBBY"
	PlanPro   Plan = "PRO"
)

// DefaultHobbyCredits is the send allowance granted to new HOBBY accounts.
const DefaultHobbyCredits = 2

type User struct {
	ID        string    `json:"id"` // prefixed, e.g. "u_abc123"
	Username  string    `json:"username"`
	Plan      Plan      `json:"plan"`
	Credits   int       `json:"credits"` // meaningful only on HOBBY
	CreatedAt time.Time `json:"created_at"`
}

// Metered reports whether sends against this account consume credits.
func (u *User) Metered() bool {
	return u.Plan == PlanHobby
}
