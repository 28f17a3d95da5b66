// Package records owns the append log: the line-oriented, write-once record
// stream that is the archive's sole persisted state. One logical record per
// line, each line "type,json"; a line is the unit of crash consistency.
package records

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

var nameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_()-]`)

// LogFileName builds the conventional output name for a fresh crawl:
// containerID.date.name.records.
func LogFileName(containerID, containerName string, now time.Time) string {
	name := nameSanitizer.ReplaceAllString(containerName, "_")
	return fmt.Sprintf("%s.%s.%s.records", containerID, now.Format("2006-01-02T15-04"), name)
}

// Writer durably appends records to a log file. Writes are whole lines; a
// record is marshalled before any byte reaches the buffer, so no partial
// line is ever produced by the writer itself.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
	bw   *bufio.Writer
}

// NewWriter opens (or creates) the log at path for appending.
func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}
	return &Writer{path: path, f: f, bw: bufio.NewWriterSize(f, 64*1024)}, nil
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Write appends one record line. Implements the crawl engine's Sink.
func (w *Writer) Write(recordType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling %s record: %w", recordType, err)
	}
	line := make([]byte, 0, len(recordType)+len(data)+2)
	line = append(line, recordType...)
	line = append(line, ',')
	line = append(line, data...)
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.bw.Write(line); err != nil {
		return fmt.Errorf("appending %s record: %w", recordType, err)
	}
	return nil
}

// Flush pushes buffered lines to disk. Called on interrupt so an external
// cancellation never leaves an in-flight line behind.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bw.Flush()
}

// Close flushes and closes the log.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
