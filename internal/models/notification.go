package models

import "time"

// LoginNotification describes a successful administrator login.
type LoginNotification struct {
	UserID    string
	Name      string
	Email     string
	IPAddress string
	LoggedAt  time.Time
}
