package chat

import (
	"fmt"

	"github.com/google/uuid"
)

// IDProvider issues identifiers for rooms and messages.
type IDProvider interface {
	NewID() (string, error)
}

// IDFunc adapts a plain function to IDProvider.
type IDFunc func() (string, error)

func (f IDFunc) NewID() (string, error) {
	return f()
}

// NewUUIDProvider issues UUIDv7 identifiers, which sort by creation time.
func NewUUIDProvider() IDProvider {
	return IDFunc(newTimeOrderedID)
}

func newTimeOrderedID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("uuidv7: %w", err)
	}
	return value.String(), nil
}
