package model

import "time"

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the authenticated caller of a request. A nil *Principal
// means the request is anonymous.
type Principal struct {
	UserID   int
	Username string
	Role     string
}
