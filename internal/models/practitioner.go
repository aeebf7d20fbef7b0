package models

import "time"

type Practitioner struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Schedule is display-only: the day and hour fields are free text
// (e.g. "segunda, quarta" and "09:00-12:00") and are never parsed.
type Schedule struct {
	ID             int64     `json:"id"`
	PractitionerID int64     `json:"practitioner_id"`
	AvailableDays  string    `json:"available_days" yaml:"available_days"`
	AvailableHours string    `json:"available_hours" yaml:"available_hours"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
