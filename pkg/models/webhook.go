package models

// Notification is a single push message for the ntfy webhook. It only
// lives for the duration of one dispatch.
type Notification struct {
	Message  string `json:"message"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
	Tags     string `json:"tags"`
}

// Response is the JSON body returned to the camera for every request.
type Response struct {
	Status  string `json:"status"` // "success" or "error"
	Message string `json:"message"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)
