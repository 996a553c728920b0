package domain

import "time"

// User is a storefront account. Only the fields the payments API needs are
// modelled here.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}
