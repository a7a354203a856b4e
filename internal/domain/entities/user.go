package entities

import "time"

// User is a patient or doctor profile in the backing store. Only the fields
// the context layer reads are modeled here; account management lives elsewhere.
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"` // "patient" or "doctor"
	Allergies []string  `json:"allergies" db:"-"`
	Specialty string    `json:"specialty,omitempty" db:"specialty"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsDoctor reports whether the user is a doctor profile.
func (u *User) IsDoctor() bool {
	return u.Role == "doctor"
}
