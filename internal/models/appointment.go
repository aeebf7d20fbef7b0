package models

import "time"

type Appointment struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	PractitionerID   int64     `json:"practitioner_id"`
	PractitionerName string    `json:"practitioner_name,omitempty"`
	UserName         string    `json:"user_name,omitempty"`
	Date             string    `json:"date"`   // YYYY-MM-DD
	Time             string    `json:"time"`   // HH:MM
	Status           string    `json:"status"` // scheduled, cancelled, completed
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Slot is the (practitioner, date, time) key that must be unique among
// scheduled appointments.
type Slot struct {
	PractitionerID int64
	Date           string
	Time           string
}

func (a *Appointment) Slot() Slot {
	return Slot{PractitionerID: a.PractitionerID, Date: a.Date, Time: a.Time}
}

func (a *Appointment) IsScheduled() bool {
	return a.Status == StatusScheduled
}
