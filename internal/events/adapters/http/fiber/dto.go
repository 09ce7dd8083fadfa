package fiber

// CreateEventRequest represents event creation payload
// @Description Event creation DTO
type CreateEventRequest struct {
	EventID   string `json:"event_id"`
	UserID    *int64 `json:"user_id"`
	EventName string `json:"event_name"`
	Timestamp int64  `json:"timestamp"`
}

type CreateEventResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type BulkCreateEventsRequest struct {
	Events []CreateEventRequest `json:"events"`
}

type BulkCreateEventsResponse struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_event"`
	Message string `json:"message" example:"Event payload is invalid"`
}
