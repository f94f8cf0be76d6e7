package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal account view the sharing flow needs: enough to resolve
// a recipient email to a user id. Accounts are created by the auth system.
type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}
