package eventlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultPath is the log file used when none is configured.
const DefaultPath = "logs/laph.log"

// File appends timestamped lines to a log file. The run ID is not
// written; a file normally holds a single CLI session.
type File struct {
	path string
	now  func() time.Time

	mu sync.Mutex
	f  *os.File
}

var _ Sink = (*File)(nil)

// OpenFile opens path for appending, creating its directory.
func OpenFile(path string) (*File, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return &File{path: path, now: time.Now, f: f}, nil
}

// Path returns the file path.
func (l *File) Path() string { return l.path }

// Log implements Sink.
func (l *File) Log(_ context.Context, _ string, message string) error {
	line := Format(l.now(), message) + "\n"
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return os.ErrClosed
	}
	_, err := l.f.WriteString(line)
	return err
}

// Clear truncates the log file.
func (l *File) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return os.ErrClosed
	}
	return l.f.Truncate(0)
}

// Close closes the file.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
