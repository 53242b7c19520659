package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/arvolve/arx-go-sdk/core"
)

// Op is the kind of a journal entry.
type Op string

const (
	OpTurn    Op = "turn"
	OpInsight Op = "insight"
	OpReset   Op = "reset"
)

// Entry is one line of the session journal: timestamped, ULID-keyed,
// human-readable JSON. Entries are appended on every mutating memory
// operation and never mutated or removed in place.
type Entry struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Time      time.Time              `json:"time"`
	Op        Op                     `json:"op"`
	Turn      *core.ConversationTurn `json:"turn,omitempty"`
	Insight   *core.LongTermInsight  `json:"insight,omitempty"`
}

// Journal is the append-only durable log for one session's memory. Each
// session gets its own JSONL file named by session id. A file lock keeps a
// second writer process out; within a process the single-writer-per-session
// discipline applies, as for Store.
type Journal struct {
	sessionID string
	path      string
	file      *os.File
	lock      *flock.Flock
}

// OpenJournal opens (creating if needed) the journal for sessionID under
// dir and takes the session write lock. It fails if another process holds
// the lock.
func OpenJournal(dir, sessionID string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	path := filepath.Join(dir, sessionID+".jsonl")

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("journal for session %s is locked by another writer", sessionID)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &Journal{
		sessionID: sessionID,
		path:      path,
		file:      file,
		lock:      lock,
	}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Append writes one entry. The entry is flushed before returning so a crash
// loses at most the entry being written.
func (j *Journal) Append(op Op, turn *core.ConversationTurn, insight *core.LongTermInsight) error {
	entry := Entry{
		ID:        ulid.Make().String(),
		SessionID: j.sessionID,
		Time:      time.Now(),
		Op:        op,
		Turn:      turn,
		Insight:   insight,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return j.file.Sync()
}

// Replay reads the journal once from the beginning, invoking fn per entry in
// order. Lines that do not parse stop the replay with an error rather than
// being skipped silently.
func (j *Journal) Replay(fn func(Entry) error) error {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open journal for replay: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return fmt.Errorf("journal line %d: %w", lineNo, err)
		}
		if err := fn(entry); err != nil {
			return fmt.Errorf("journal line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	return nil
}

// Close releases the file handle and the session write lock.
func (j *Journal) Close() error {
	err := j.file.Close()
	if unlockErr := j.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}
