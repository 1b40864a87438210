package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a fresh UUIDv4 string for auction and bid identifiers.
func GenerateID() string {
	return uuid.New().String()
}
