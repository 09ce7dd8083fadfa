package domain

import "time"

type Event struct {
	EventID   string
	UserID    int64
	EventName string
	EventTime time.Time
	DedupeKey string
}
