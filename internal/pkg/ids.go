package pkg

import "github.com/google/uuid"

func GenerateSessionID() string {
	return uuid.NewString()
}

func GenerateConnectionID() string {
	return uuid.NewString()
}
