package domain

import "time"

type User struct {
	ID           int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LoginName    string
	EmailAddress string
	FirstName    string
	LastName     string
}

func (u User) GetID() int64 { return u.ID }
func (u User) IsNew() bool  { return u.ID == 0 }
