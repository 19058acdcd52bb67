package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// lockConfig bounds lock acquisition for one append.
type lockConfig struct {
	timeout    time.Duration
	retry      time.Duration
	staleAfter time.Duration
}

// lockMeta is written into the claim file for stale-lock diagnosis.
type lockMeta struct {
	Owner     string    `json:"owner"`
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"created_at"`
}

// processLockRegistry serializes same-process writers per lock path so the
// claim file only arbitrates between distinct OS processes.
var processLockRegistry sync.Map

func processLock(path string) *sync.Mutex {
	if existing, ok := processLockRegistry.Load(path); ok {
		if mu, ok := existing.(*sync.Mutex); ok {
			return mu
		}
	}
	mu := &sync.Mutex{}
	actual, _ := processLockRegistry.LoadOrStore(path, mu)
	if typed, ok := actual.(*sync.Mutex); ok {
		return typed
	}
	return mu
}

// acquireLock claims the cross-process append lock and returns its release
// function. The claim is an O_CREATE|O_EXCL file: creation is atomic on
// every platform the journal targets, so whichever process creates the file
// owns the append until it removes the file again.
//
// A claim file older than staleAfter is treated as an abandoned lock from a
// crashed writer and taken over.
func acquireLock(path string, cfg lockConfig) (release func(), err error) {
	mu := processLock(path)
	mu.Lock()

	owner := uuid.NewString()
	start := time.Now()
	attempts := 0
	for {
		attempts++
		claim, openErr := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if openErr == nil {
			meta := lockMeta{Owner: owner, PID: os.Getpid(), CreatedAt: time.Now().UTC()}
			if encoded, marshalErr := json.Marshal(meta); marshalErr == nil {
				_, _ = claim.Write(append(encoded, '\n'))
			}
			_ = claim.Close()
			return func() {
				_ = os.Remove(path)
				mu.Unlock()
			}, nil
		}
		if !errors.Is(openErr, fs.ErrExist) {
			mu.Unlock()
			return nil, fmt.Errorf("acquire append lock: %w", openErr)
		}
		if staleLock(path, cfg.staleAfter) {
			_ = os.Remove(path)
			continue
		}
		if time.Since(start) >= cfg.timeout {
			mu.Unlock()
			return nil, &LockTimeoutError{
				LockPath: path,
				Waited:   time.Since(start),
				Attempts: attempts,
				Timeout:  cfg.timeout,
			}
		}
		time.Sleep(cfg.retry)
	}
}

// staleLock reports whether the claim file looks abandoned.
func staleLock(path string, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleAfter
}
