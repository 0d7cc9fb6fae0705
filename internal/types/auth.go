package types

import (
	"time"

	"github.com/google/uuid"
)

// UserAuth represents the core user entity in the domain.
type UserAuth struct {
	ID        uuid.UUID `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"` // Unique identifier (UUID), assigned by the store.
	Username  string    `json:"username" example:"alice"`                         // Unique username.
	Email     string    `json:"email" example:"alice@x.com"`                      // Unique email address used for login.
	Password  string    `json:"-"`                                                // Hashed password (never exposed).
	CreatedAt time.Time `json:"created_at"`                                       // Timestamp when the user was created.
}

// Public returns a copy of the user without the password hash.
func (u UserAuth) Public() UserAuth {
	u.Password = ""
	return u
}
