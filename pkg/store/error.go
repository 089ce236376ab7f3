package store

import "fmt"

// NotFoundError is returned when a message doesn't exist in the store.
type NotFoundError struct {
	ID int64
}

func (e NotFoundError) Error() string {
	if e.ID == 0 {
		return "message not found"
	}

	return fmt.Sprintf("message not found: %d", e.ID)
}
