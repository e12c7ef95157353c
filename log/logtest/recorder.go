/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-throttle/log"
)

// RecordedEntry represents recorded entry which was logged.
type RecordedEntry struct {
	LoggerName string
	Fields     []log.Field
	Level      log.Level
	Time       time.Time
	Text       string
}

// FindField tries to find field in logging entry by key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

type entryStore struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic
func (s *entryStore) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.DerivedFields)+len(e.Fields))
	fields = append(fields, e.DerivedFields...)
	fields = append(fields, e.Fields...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, RecordedEntry{
		LoggerName: e.LoggerName,
		Fields:     fields,
		Level:      fromLogfLevel(e.Level),
		Time:       e.Time,
		Text:       e.Text,
	})
}

// Recorder is an implementation of log.FieldLogger that records all logged entries for later inspection in tests.
// Loggers derived from a Recorder (via With and WithLevel) share its entries.
type Recorder struct {
	*log.LogfAdapter
	store *entryStore
}

// NewRecorder returns an initialized Recorder that records entries of all levels.
func NewRecorder() *Recorder {
	store := &entryStore{}
	return &Recorder{&log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, store)}, store}
}

// With returns a new Recorder with the given additional fields.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{r.LogfAdapter.With(fs...).(*log.LogfAdapter), r.store}
}

// WithLevel returns a new Recorder with the given additional level check.
func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return &Recorder{r.LogfAdapter.WithLevel(level).(*log.LogfAdapter), r.store}
}

// Entries returns all recorded logging entries.
func (r *Recorder) Entries() []RecordedEntry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]RecordedEntry(nil), r.store.entries...)
}

// FindEntry tries to find recorded logging entry by message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	entries := r.FindAllEntriesByFilter(func(e RecordedEntry) bool { return e.Text == msg })
	if len(entries) == 0 {
		return RecordedEntry{}, false
	}
	return entries[0], true
}

// FindAllEntriesByFilter returns all recorded logging entries that match the filter.
func (r *Recorder) FindAllEntriesByFilter(filter func(entry RecordedEntry) bool) []RecordedEntry {
	var found []RecordedEntry
	for _, e := range r.Entries() {
		if filter(e) {
			found = append(found, e)
		}
	}
	return found
}

// Reset forgets all recorded entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}

func fromLogfLevel(level logf.Level) log.Level {
	switch level {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	default:
		return log.LevelInfo
	}
}
