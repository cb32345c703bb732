package models

import "time"

// Lead is the conversion record a session links to once its visitor
// completes the lead-capture form. Lead management itself lives in the
// admin application; this service only holds the row sessions point at.
type Lead struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
