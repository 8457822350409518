package models

import "errors"

// Store-level errors shared by every persistence implementation.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)
