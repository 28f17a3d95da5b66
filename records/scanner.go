package records

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"discord-archive/utils"
)

var (
	// ErrCorruptLog means the file is not a readable append log: no valid
	// header record, or a malformed line in the middle of the stream.
	ErrCorruptLog = errors.New("corrupt append log")

	// ErrIncompatibleFormat means the log's format version predates the
	// oldest one this implementation can interpret.
	ErrIncompatibleFormat = errors.New("incompatible append log format")
)

// Record is one parsed log line.
type Record struct {
	Type string
	Data json.RawMessage
}

// maxLineSize bounds a single record line (server records carry member id
// lists and can grow large).
const maxLineSize = 64 * 1024 * 1024

// Scan streams the log at path in write order, calling fn per record. A
// torn final line (crash tail from an interrupted run) is skipped with a
// warning; a malformed line anywhere else is ErrCorruptLog.
func Scan(path string, fn func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()
	return scan(f, fn)
}

func scan(r io.Reader, fn func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	torn := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if torn {
			// Something follows the malformed line, so it was not a crash
			// tail: the log is unusable.
			return fmt.Errorf("%w: malformed record at line %d", ErrCorruptLog, lineNo-1)
		}
		rec, ok := parseLine(line)
		if !ok {
			torn = true
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading log: %w", err)
	}
	if torn {
		utils.Warn("records", "scan", fmt.Sprintf("skipping torn final line %d (interrupted run)", lineNo))
	}
	return nil
}

// Unmarshal decodes a record payload, mapping decode failures to
// ErrCorruptLog (the line passed json.Valid, so a failure here means the
// payload shape is wrong, not the framing).
func Unmarshal(rec Record, v any) error {
	if err := json.Unmarshal(rec.Data, v); err != nil {
		return fmt.Errorf("%w: bad %s payload: %v", ErrCorruptLog, rec.Type, err)
	}
	return nil
}

func parseLine(line []byte) (Record, bool) {
	idx := bytes.IndexByte(line, ',')
	if idx <= 0 {
		return Record{}, false
	}
	data := line[idx+1:]
	if !json.Valid(data) {
		return Record{}, false
	}
	rec := Record{Type: string(line[:idx])}
	rec.Data = append(rec.Data, data...)
	return rec, true
}
