package models

import "time"

type User struct {
	ID           string `json:"id" bson:"_id,omitempty"`
	PublicID     string `json:"public_id" bson:"public_id"`
	Username     string `json:"username" bson:"username"`
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"-" bson:"password_hash"`
}

// ArchivedList is a user-saved list of places, e.g. a finished day plan the
// user wants to revisit later.
type ArchivedList struct {
	ID       string    `json:"id" bson:"_id,omitempty"`
	PublicID string    `json:"public_id" bson:"public_id"`
	UserID   string    `json:"user_id" bson:"user_id"`
	Name     string    `json:"name" bson:"name"`
	Places   []Place   `json:"places" bson:"places"`
	Note     string    `json:"note,omitempty" bson:"note,omitempty"`
	Date     time.Time `json:"date" bson:"date"`
}
