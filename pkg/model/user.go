package model

import "time"

// User is a model of the persistency layer
type User struct {
	ID           string
	Username     string
	PasswordHash string
	ProfilePic   string
	IsOnline     bool
	LastSeen     time.Time
	Contacts     []string
	PushTokens   []string

	CreatedAt time.Time
	UpdatedAt time.Time
}
