package models

import "time"

type UserType string

const (
	UserTypeGuest   UserType = "guest"
	UserTypeRegular UserType = "regular"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Type         UserType  `json:"type"`
	CreatedAt    time.Time `json:"created_at"`
}
