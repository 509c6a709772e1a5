package utils

import "github.com/google/uuid"

// NewTaskID returns a short task identifier. Eight hex characters of a v4
// UUID keeps log file names readable while staying unique enough for the
// lifetime of the log directory.
func NewTaskID() string {
	return uuid.New().String()[:8]
}
