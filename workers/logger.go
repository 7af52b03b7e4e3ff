package workers

import "jobfeed/models"

// LogFunc mirrors a worker log line into the ops store.
type LogFunc func(level models.LogLevel, source, message string)

// NoOpLogger does nothing (default)
var NoOpLogger LogFunc = func(level models.LogLevel, source, message string) {}
