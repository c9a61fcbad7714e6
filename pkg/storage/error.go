package storage

// ErrNotFound is returned when a record doesn't exist in the store, or
// exists but belongs to a different user.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}

	return e.Resource + " not found: " + e.ID
}
