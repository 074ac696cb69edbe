package domain

import "errors"

var (
	// ErrTaskNotFound indicates the task is not part of the board.
	ErrTaskNotFound = errors.New("task not found")
	// ErrStatusNotFound indicates the status is not part of the board.
	ErrStatusNotFound = errors.New("status not found")
	ErrEmptyTitle     = errors.New("task title is empty")
	ErrEmptyName      = errors.New("status name is empty")
	ErrInvalidDate    = errors.New("date must be YYYY-MM-DD")
)
