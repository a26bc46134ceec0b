package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/tickstream/internal/dynamo"
)

type SequencePolicy int

const (
	// SequenceResume continues after the highest valid sequence on disk.
	SequenceResume SequencePolicy = iota
	// SequencePerProcess restarts at 1 every time the log is opened.
	SequencePerProcess
)

func (p SequencePolicy) String() string {
	if p == SequencePerProcess {
		return "process"
	}
	return "resume"
}

func ParseSequencePolicy(s string) (SequencePolicy, error) {
	switch strings.ToLower(s) {
	case "", "resume":
		return SequenceResume, nil
	case "process", "per-process":
		return SequencePerProcess, nil
	}
	return SequenceResume, fmt.Errorf("unknown sequence policy: %s", s)
}

type Options struct {
	Sequence SequencePolicy
	// Retries bounds how often a transient write or sync failure is retried.
	Retries int
	Backoff time.Duration
	// NoSync skips fsync after each record. Only for benchmarks.
	NoSync bool
	Logger *log.Logger
}

func DefaultOptions() Options {
	return Options{Retries: 5, Backoff: time.Millisecond}
}

// WriteError is a fatal append failure.
type WriteError struct {
	Op       string
	Path     string
	Sequence uint64
	Written  int
	Want     int
	Attempts int
	Err      error
}

func (e *WriteError) Error() string {
	if e.Written > 0 && e.Written < e.Want {
		return fmt.Sprintf("storage: %s %s seq %d: partial write %d/%d bytes: %v", e.Op, e.Path, e.Sequence, e.Written, e.Want, e.Err)
	}
	return fmt.Sprintf("storage: %s %s seq %d after %d attempts: %v", e.Op, e.Path, e.Sequence, e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

type file interface {
	io.Writer
	Sync() error
	Close() error
}

// Log is an append-only, fsynced sample log. Append is safe for
// concurrent use; sequence numbers follow the order appends take the lock.
type Log struct {
	mu     sync.Mutex
	f      file
	path   string
	seq    uint64
	opts   Options
	buf    []byte
	closed bool
}

// Open creates path (and its directory) or appends to it.
func Open(path string, opts Options) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	last, torn, err := scanTail(path)
	if err != nil {
		return nil, err
	}
	if opts.Sequence == SequencePerProcess {
		last = 0
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	l := newLog(f, path, last, opts)
	if torn {
		// a crash left a partial line; start the next record on its own line
		if _, err := f.Write([]byte{'\n'}); err != nil {
			f.Close()
			return nil, fmt.Errorf("repair log tail: %w", err)
		}
		l.opts.Logger.Warn("log ended mid-record", "path", path)
	}
	l.opts.Logger.Debug("log opened", "path", path, "policy", opts.Sequence, "next", last+1)
	return l, nil
}

func newLog(f file, path string, last uint64, opts Options) *Log {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Millisecond
	}
	return &Log{f: f, path: path, seq: last, opts: opts}
}

// scanTail returns the highest valid sequence in path and whether the file
// ends without a newline. A missing file is empty.
func scanTail(path string) (uint64, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("scan log: %w", err)
	}
	defer f.Close()

	var last uint64
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if rec, perr := ParseRecord(line); perr == nil && rec.Sequence > last {
				last = rec.Sequence
			}
		}
		if err == io.EOF {
			// ReadString only returns a non-empty line at EOF when the
			// final newline is missing
			return last, len(line) > 0, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("scan log: %w", err)
		}
	}
}

// Append writes one record and returns its sequence number. Samples with
// non-finite positions or a dimension that disagrees with len(positions)
// are rejected without consuming a number.
func (l *Log) Append(dimension int, positions []float64, tickCostUS uint64) (uint64, error) {
	if dimension != len(positions) {
		return 0, fmt.Errorf("%w: dimension %d with %d positions", dynamo.ErrDimensionMismatch, dimension, len(positions))
	}
	if !dynamo.State(positions).IsValid() {
		return 0, dynamo.ErrInvalidState
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}

	next := l.seq + 1
	l.buf = Record{Sequence: next, Dimension: dimension, Positions: positions, TickCostUS: tickCostUS}.AppendTo(l.buf[:0])
	if err := l.write(next, l.buf); err != nil {
		return 0, err
	}
	l.seq = next

	if l.opts.NoSync {
		return next, nil
	}
	if err := l.sync(next); err != nil {
		return next, err
	}
	return next, nil
}

func (l *Log) write(seq uint64, b []byte) error {
	backoff := l.opts.Backoff
	for attempt := 1; ; attempt++ {
		n, err := l.f.Write(b)
		if err == nil && n == len(b) {
			return nil
		}
		if err == nil {
			err = io.ErrShortWrite
		}
		if n > 0 {
			return &WriteError{Op: "write", Path: l.path, Sequence: seq, Written: n, Want: len(b), Attempts: attempt, Err: err}
		}
		if !transient(err) || attempt > l.opts.Retries {
			return &WriteError{Op: "write", Path: l.path, Sequence: seq, Want: len(b), Attempts: attempt, Err: err}
		}
		l.opts.Logger.Warn("retrying write", "seq", seq, "attempt", attempt, "err", err)
		time.Sleep(backoff)
		backoff *= 2
	}
}

func (l *Log) sync(seq uint64) error {
	backoff := l.opts.Backoff
	for attempt := 1; ; attempt++ {
		err := l.f.Sync()
		if err == nil {
			return nil
		}
		if !transient(err) || attempt > l.opts.Retries {
			return &WriteError{Op: "sync", Path: l.path, Sequence: seq, Attempts: attempt, Err: err}
		}
		l.opts.Logger.Warn("retrying sync", "seq", seq, "attempt", attempt, "err", err)
		time.Sleep(backoff)
		backoff *= 2
	}
}

func transient(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EBUSY)
}

// Sequence is the last number handed out, 0 before the first append.
func (l *Log) Sequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

func (l *Log) Path() string { return l.path }

// Close syncs and closes the file. Closing twice is a no-op.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return errors.Join(l.f.Sync(), l.f.Close())
}
