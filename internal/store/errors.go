package store

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLockTimeout indicates the append lock could not be acquired in time.
	// Retryable: callers should back off and retry the append.
	ErrLockTimeout = errors.New("append lock timeout")
	// ErrRecordTooLarge indicates an encoded record above the size cap.
	ErrRecordTooLarge = errors.New("event record exceeds size cap")
	// ErrStorageCorruption indicates a corrupt journal tail that could not be
	// repaired automatically.
	ErrStorageCorruption = errors.New("journal corruption")
)

// LockTimeoutError reports a failed lock acquisition with contention details.
type LockTimeoutError struct {
	LockPath string
	Waited   time.Duration
	Attempts int
	Timeout  time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("append lock timeout after %s (%d attempts, limit %s): %s",
		e.Waited.Round(time.Millisecond), e.Attempts, e.Timeout, e.LockPath)
}

// Unwrap lets callers match the retryable sentinel with errors.Is.
func (e *LockTimeoutError) Unwrap() error {
	return ErrLockTimeout
}
