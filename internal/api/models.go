package api

import "time"

// SuccessResponse wraps the result of a query
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is written for every non-2xx answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports service and store health
type HealthResponse struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// CountResponse carries a single document count
type CountResponse struct {
	Count int64 `json:"count"`
}

// InsertResponse carries the _id of an inserted document
type InsertResponse struct {
	ID interface{} `json:"id"`
}
