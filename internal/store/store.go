package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/swarmlog/internal/event"
)

const (
	// JournalFileName is the journal file inside a session directory.
	JournalFileName = "events.jsonl"
	// LockFileName is the claim file guarding appends.
	LockFileName = "events.jsonl.lock"

	// MaxRecordSize caps one encoded journal record so a single writer
	// cannot starve the log. A payload that alone exceeds the cap fails
	// before the lock is taken; the full encoded line is checked again
	// before it is written.
	MaxRecordSize = 1 << 20

	defaultLockTimeout    = 5 * time.Second
	defaultLockRetry      = 10 * time.Millisecond
	defaultLockStaleAfter = 30 * time.Second

	readBufferSize = 128 * 1024
)

// Store is a durable, globally-ordered, multi-writer append log rooted at an
// explicit session directory. Zero hidden process-wide state: every call
// site constructs or receives a Store value.
type Store struct {
	dir      string
	path     string
	lockPath string

	registry *event.Registry
	tracer   trace.Tracer

	lockTimeout    time.Duration
	lockRetry      time.Duration
	lockStaleAfter time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry replaces the default event type registry.
func WithRegistry(registry *event.Registry) Option {
	return func(s *Store) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithLockTimeout bounds how long one append waits on the cross-process lock.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// WithLockRetry sets the backoff between lock acquisition attempts.
func WithLockRetry(retry time.Duration) Option {
	return func(s *Store) {
		if retry > 0 {
			s.lockRetry = retry
		}
	}
}

// WithLockStaleAfter sets the age at which an abandoned claim file is taken over.
func WithLockStaleAfter(staleAfter time.Duration) Option {
	return func(s *Store) {
		if staleAfter > 0 {
			s.lockStaleAfter = staleAfter
		}
	}
}

// Open prepares a store for the given session directory, creating the
// directory if needed. The journal file itself is created on first append.
func Open(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("session directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	s := &Store{
		dir:            dir,
		path:           filepath.Join(dir, JournalFileName),
		lockPath:       filepath.Join(dir, LockFileName),
		registry:       event.DefaultRegistry(),
		tracer:         otel.Tracer("swarmlog/store"),
		lockTimeout:    defaultLockTimeout,
		lockRetry:      defaultLockRetry,
		lockStaleAfter: defaultLockStaleAfter,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Dir returns the session directory the store is rooted at.
func (s *Store) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// Registry returns the event type registry used for validation and decoding.
func (s *Store) Registry() *event.Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

// Append durably writes one event and returns its sequence number.
//
// The returned sequence is final: it equals the event's position in file
// order and is identical for every subsequent reader. A returned sequence
// number means the line was written and fsynced in full; write failures are
// surfaced, never retried silently.
//
// Tail repair runs first: any trailing bytes after the last fully-written
// valid line are discarded before the new line goes in. A trailing line that
// is complete but undecodable is treated the same as a partial write and is
// discarded with it.
func (s *Store) Append(ctx context.Context, eventType event.Type, payload json.RawMessage) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil {
		return 0, errors.New("store is not configured")
	}

	_, span := s.tracer.Start(ctx, "store.Append",
		trace.WithAttributes(attribute.String("swarmlog.event.type", string(eventType))))
	defer span.End()

	validated, err := s.registry.ValidateForAppend(eventType, payload)
	if err != nil {
		return 0, err
	}
	if len(validated) > MaxRecordSize {
		return 0, fmt.Errorf("%w: payload is %d bytes, cap is %d", ErrRecordTooLarge, len(validated), MaxRecordSize)
	}

	release, err := acquireLock(s.lockPath, lockConfig{
		timeout:    s.lockTimeout,
		retry:      s.lockRetry,
		staleAfter: s.lockStaleAfter,
	})
	if err != nil {
		return 0, err
	}
	defer release()

	// Once the lock is held the write must complete: no ctx checks past this
	// point, so an abandoned caller can never leave a partial line behind.
	tail, err := s.readTail()
	if err != nil {
		return 0, err
	}
	if tail.size > tail.validEnd {
		if err := s.truncateTail(tail); err != nil {
			return 0, err
		}
	}

	evt := event.Event{
		Seq:       tail.nextSeq,
		Type:      eventType,
		Payload:   validated,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return 0, fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')
	if len(line) > MaxRecordSize {
		return 0, fmt.Errorf("%w: encoded record is %d bytes, cap is %d", ErrRecordTooLarge, len(line), MaxRecordSize)
	}

	journal, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("open journal: %w", err)
	}
	if _, err := journal.Write(line); err != nil {
		_ = journal.Close()
		return 0, fmt.Errorf("append event: %w", err)
	}
	if err := journal.Sync(); err != nil {
		_ = journal.Close()
		return 0, fmt.Errorf("sync journal: %w", err)
	}
	if err := journal.Close(); err != nil {
		return 0, fmt.Errorf("close journal: %w", err)
	}

	span.SetAttributes(attribute.Int64("swarmlog.event.seq", int64(evt.Seq)))
	return evt.Seq, nil
}

// ScanInfo summarizes one pass over the journal.
type ScanInfo struct {
	// Events is the number of events delivered to the callback.
	Events int
	// LastSeq is the sequence of the last delivered event.
	LastSeq uint64
	// CorruptLines counts fully-written lines that failed to decode. These
	// indicate external tampering, not an interrupted append.
	CorruptLines int
}

// errStopScan aborts a scan early without surfacing an error to the caller.
var errStopScan = errors.New("stop scan")

// ScanEvents streams durable events with sequence >= fromSeq, in file order,
// without taking the append lock. A missing journal yields an empty scan;
// a trailing partial line is ignored as not yet durable.
func (s *Store) ScanEvents(ctx context.Context, fromSeq uint64, fn func(event.Event) error) (ScanInfo, error) {
	if s == nil {
		return ScanInfo{}, errors.New("store is not configured")
	}
	if fn == nil {
		return ScanInfo{}, errors.New("scan callback is required")
	}

	var info ScanInfo
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return info, nil
		}
		return info, fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := bufio.NewReaderSize(file, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return info, err
		}
		line, readErr := reader.ReadBytes('\n')
		if readErr == nil {
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) > 0 {
				var evt event.Event
				if jsonErr := json.Unmarshal(trimmed, &evt); jsonErr != nil {
					info.CorruptLines++
				} else if evt.Seq >= fromSeq {
					if err := fn(evt); err != nil {
						if errors.Is(err, errStopScan) {
							return info, nil
						}
						return info, err
					}
					info.Events++
					info.LastSeq = evt.Seq
				}
			}
			continue
		}
		if errors.Is(readErr, io.EOF) {
			// Any bytes left in line lack a terminating newline: an
			// interrupted append, not yet durable.
			return info, nil
		}
		return info, fmt.Errorf("read journal: %w", readErr)
	}
}

// ReadEvents returns all durable events with sequence >= fromSeq in strictly
// ascending order. Restartable and idempotent between appends.
func (s *Store) ReadEvents(ctx context.Context, fromSeq uint64) ([]event.Event, error) {
	var events []event.Event
	_, err := s.ScanEvents(ctx, fromSeq, func(evt event.Event) error {
		events = append(events, evt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ReadPage returns up to limit durable events with sequence >= fromSeq in
// ascending order. Pass the last returned sequence plus one to resume; a
// short or empty page means the durable tail was reached.
func (s *Store) ReadPage(ctx context.Context, fromSeq uint64, limit int) ([]event.Event, error) {
	if limit <= 0 {
		return nil, errors.New("page limit must be positive")
	}
	var events []event.Event
	_, err := s.ScanEvents(ctx, fromSeq, func(evt event.Event) error {
		events = append(events, evt)
		if len(events) >= limit {
			return errStopScan
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// NextSeq returns the sequence number the next append will receive, derived
// from the durable tail. Lock-free.
func (s *Store) NextSeq(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil {
		return 0, errors.New("store is not configured")
	}
	tail, err := s.readTail()
	if err != nil {
		return 0, err
	}
	return tail.nextSeq, nil
}

// RepairTail truncates any incomplete trailing bytes left by an interrupted
// append and returns how many bytes were discarded. It takes the append lock
// so a concurrent writer cannot race the truncation.
func (s *Store) RepairTail(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil {
		return 0, errors.New("store is not configured")
	}
	release, err := acquireLock(s.lockPath, lockConfig{
		timeout:    s.lockTimeout,
		retry:      s.lockRetry,
		staleAfter: s.lockStaleAfter,
	})
	if err != nil {
		return 0, err
	}
	defer release()

	tail, err := s.readTail()
	if err != nil {
		return 0, err
	}
	discarded := tail.size - tail.validEnd
	if discarded <= 0 {
		return 0, nil
	}
	if err := s.truncateTail(tail); err != nil {
		return 0, err
	}
	return discarded, nil
}

// tailState captures the durable end of the journal.
type tailState struct {
	// nextSeq is one past the last fully-written valid event.
	nextSeq uint64
	// validEnd is the byte offset after the last fully-written valid line.
	validEnd int64
	// size is the current file size in bytes.
	size int64
}

// readTail scans the journal for the last syntactically valid, fully-written
// line. Everything after validEnd is an incomplete write from an interrupted
// append and is never counted as an event.
func (s *Store) readTail() (tailState, error) {
	var tail tailState
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return tail, nil
		}
		return tail, fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := bufio.NewReaderSize(file, readBufferSize)
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			tail.size += int64(len(line))
			if readErr == nil {
				trimmed := bytes.TrimSpace(line)
				if len(trimmed) > 0 {
					var evt event.Event
					if json.Unmarshal(trimmed, &evt) == nil {
						tail.nextSeq = evt.Seq + 1
						tail.validEnd = tail.size
					}
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return tail, nil
			}
			return tail, fmt.Errorf("read journal tail: %w", readErr)
		}
	}
}

// truncateTail discards bytes after the last valid line. Caller holds the lock.
func (s *Store) truncateTail(tail tailState) error {
	log.Printf("swarmlog: repairing journal tail: discarding %d bytes after offset %d",
		tail.size-tail.validEnd, tail.validEnd)
	if err := os.Truncate(s.path, tail.validEnd); err != nil {
		return fmt.Errorf("%w: truncate tail: %v", ErrStorageCorruption, err)
	}
	return nil
}
