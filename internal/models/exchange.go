package models

import "time"

// AIExchange is an append-only record of one support-chat round trip.
type AIExchange struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	Reply     string    `json:"reply"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatReply is what the support-chat responder hands back to the caller.
type ChatReply struct {
	Text      string    `json:"reply"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"timestamp"`
}
