package models

import "time"

type Rating struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	Score         int       `json:"score"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
