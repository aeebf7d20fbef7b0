package models

import "time"

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	SendAt    time.Time `json:"send_at"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
