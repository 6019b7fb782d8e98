package service

import "errors"

var (
	// ErrGameNotFound is returned when an operation references an unknown game.
	ErrGameNotFound = errors.New("game not found")

	// ErrActionNotFound is returned when a review operation references a
	// nonexistent action.
	ErrActionNotFound = errors.New("action not found")

	// ErrAlreadyRunning is returned when Start is called on a running monitor.
	ErrAlreadyRunning = errors.New("monitor already running")

	// ErrInvalidReviewStatus is returned for an unrecognized review status.
	ErrInvalidReviewStatus = errors.New("invalid review status")

	// ErrInvalidFlagPriority is returned for an unrecognized flag priority.
	ErrInvalidFlagPriority = errors.New("invalid flag priority")
)
