package scheduler

import "errors"

var (
	// ErrInvalidSchedule is returned for a schedule that is not "m h * * *"
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrAlreadyRunning is returned when Start is called twice
	ErrAlreadyRunning = errors.New("cron trigger already running")
)
