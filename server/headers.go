package server

// Headers not provided by Echo. Use echo.HeaderXRequestID and friends directly.
const (
	// HeaderXResponseTime reports handler duration; set by Timing.
	HeaderXResponseTime = "X-Response-Time"
)
