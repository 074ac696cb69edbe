package board

import "errors"

// ErrNoTransition is returned when a task's status has no advance or toggle
// target on the current board.
var ErrNoTransition = errors.New("no status transition available")
