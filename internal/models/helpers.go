package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a new unique ID with the given prefix.
func GenerateID(prefix string) string {
	id := uuid.New().String()

	return fmt.Sprintf("%s-%s", prefix, id[:8])
}

// GetCurrentTime returns the current time in UTC
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}
