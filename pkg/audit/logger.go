package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/newtron-network/netconsole/pkg/util"
)

// Logger defines the interface for audit logging backends
type Logger interface {
	Log(event *Event) error
	Query(filter Filter) ([]*Event, error)
	Close() error
}

// maxEventSize bounds a single JSON line read back by Query.
const maxEventSize = 1024 * 1024

// FileLogger logs audit events to a JSON-lines file
type FileLogger struct {
	path     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
}

// RotationConfig configures size-based rotation. Rotated files are named
// <path>.1 (newest) through <path>.<MaxBackups>.
type RotationConfig struct {
	MaxSize    int64 // rotate once the live file reaches this size; 0 disables
	MaxBackups int   // rotated files to keep; 0 keeps all
}

// NewFileLogger creates a new file-based audit logger
func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	return &FileLogger{
		path:     path,
		file:     file,
		encoder:  json.NewEncoder(file),
		rotation: rotation,
	}, nil
}

// Log writes an audit event to the log file
func (l *FileLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("audit log %s is closed", l.path)
	}

	if l.rotation.MaxSize > 0 {
		if info, err := l.file.Stat(); err == nil && info.Size() >= l.rotation.MaxSize {
			if err := l.rotate(); err != nil {
				return fmt.Errorf("rotating audit log: %w", err)
			}
		}
	}

	return l.encoder.Encode(event)
}

// Query returns the events matching filter, oldest first unless
// filter.Newest is set. Rotated backups are read before the live file, so a
// time-window query spans rotations.
func (l *FileLogger) Query(filter Filter) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var events []*Event
	for _, path := range l.files() {
		matched, err := readEvents(path, filter)
		if err != nil {
			return nil, err
		}
		events = append(events, matched...)
	}

	if filter.Newest {
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(events) {
			return []*Event{}, nil
		}
		events = events[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(events) {
		events = events[:filter.Limit]
	}
	if events == nil {
		events = []*Event{}
	}
	return events, nil
}

// readEvents scans one JSON-lines file. A missing file has no events;
// malformed lines are skipped.
func readEvents(path string, filter Filter) ([]*Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []*Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for line := 1; scanner.Scan(); line++ {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			util.Warnf("audit: skipping malformed entry at %s:%d: %v", filepath.Base(path), line, err)
			continue
		}
		if filter.matches(&event) {
			events = append(events, &event)
		}
	}
	return events, scanner.Err()
}

// Close closes the log file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (f Filter) matches(e *Event) bool {
	switch {
	case f.Device != "" && e.Device != f.Device,
		f.User != "" && e.User != f.User,
		f.Operation != "" && e.Operation != f.Operation,
		f.Interface != "" && e.Interface != f.Interface,
		f.RunID != "" && e.RunID != f.RunID,
		!f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime),
		f.FailureOnly && e.Success:
		return false
	}
	return true
}

// backupPath names the n-th rotated file; 1 is the most recent.
func (l *FileLogger) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", l.path, n)
}

// backups counts the rotated files present, stopping at the first gap.
func (l *FileLogger) backups() int {
	n := 0
	for {
		if _, err := os.Stat(l.backupPath(n + 1)); err != nil {
			return n
		}
		n++
	}
}

// files lists the backups oldest first, then the live file.
func (l *FileLogger) files() []string {
	n := l.backups()
	paths := make([]string, 0, n+1)
	for i := n; i >= 1; i-- {
		paths = append(paths, l.backupPath(i))
	}
	return append(paths, l.path)
}

// rotate shifts audit.log.N to audit.log.N+1, moves the live file to
// audit.log.1 and reopens. Backups beyond MaxBackups are removed; a
// MaxBackups of 0 keeps them all.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	l.file = nil

	top := l.backups()
	if keep := l.rotation.MaxBackups; keep > 0 && top >= keep {
		for i := keep; i <= top; i++ {
			if err := os.Remove(l.backupPath(i)); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		top = keep - 1
	}
	for i := top; i >= 1; i-- {
		if err := os.Rename(l.backupPath(i), l.backupPath(i+1)); err != nil {
			return err
		}
	}
	if err := os.Rename(l.path, l.backupPath(1)); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.encoder = json.NewEncoder(file)
	return nil
}

// loggerHolder wraps a Logger so atomic.Value always stores the same concrete type.
type loggerHolder struct {
	logger Logger
}

var defaultLogger atomic.Value

// SetDefaultLogger sets the default audit logger
func SetDefaultLogger(logger Logger) {
	defaultLogger.Store(loggerHolder{logger: logger})
}

func getDefaultLogger() Logger {
	v := defaultLogger.Load()
	if v == nil {
		return nil
	}
	return v.(loggerHolder).logger
}

// Log logs an event using the default logger
func Log(event *Event) error {
	l := getDefaultLogger()
	if l == nil {
		return nil // No-op if no logger configured
	}
	return l.Log(event)
}

// Query queries events from the default logger
func Query(filter Filter) ([]*Event, error) {
	l := getDefaultLogger()
	if l == nil {
		return []*Event{}, nil
	}
	return l.Query(filter)
}
