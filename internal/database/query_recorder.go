package database

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm/logger"
)

// QueryLog is a single executed SQL statement.
type QueryLog struct {
	ID        int           `json:"id"`
	SQL       string        `json:"sql"`
	Duration  time.Duration `json:"duration"`
	Rows      int64         `json:"rows"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// QueryRecorder keeps the most recent statements in a fixed ring.
type QueryRecorder struct {
	mu      sync.RWMutex
	ring    []QueryLog
	next    int // slot the next statement goes into
	size    int // filled slots
	counter int
}

// SQLRecorder backs the debug endpoint.
var SQLRecorder = NewQueryRecorder(100)

func NewQueryRecorder(capacity int) *QueryRecorder {
	if capacity < 1 {
		capacity = 1
	}
	return &QueryRecorder{ring: make([]QueryLog, capacity)}
}

func (r *QueryRecorder) Record(sql string, duration time.Duration, rows int64, err error) {
	entry := QueryLog{SQL: sql, Duration: duration, Rows: rows, Timestamp: time.Now()}
	if err != nil {
		entry.Error = err.Error()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	entry.ID = r.counter
	r.ring[r.next] = entry
	r.next = (r.next + 1) % len(r.ring)
	if r.size < len(r.ring) {
		r.size++
	}
}

// Recent returns up to n statements, newest first. n <= 0 returns all.
func (r *QueryRecorder) Recent(n int) []QueryLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]QueryLog, n)
	for i := range out {
		out[i] = r.ring[(r.next-1-i+len(r.ring))%len(r.ring)]
	}
	return out
}

// Total is the number of statements recorded since start, including evicted ones.
func (r *QueryRecorder) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counter
}

func (r *QueryRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next, r.size = 0, 0
}

// RecordingLogger forwards to the wrapped gorm logger and records every statement.
type RecordingLogger struct {
	logger.Interface
	Recorder *QueryRecorder
}

func (l *RecordingLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &RecordingLogger{Interface: l.Interface.LogMode(level), Recorder: l.Recorder}
}

func (l *RecordingLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	l.Interface.Trace(ctx, begin, fc, err)

	sql, rows := fc()
	l.Recorder.Record(sql, time.Since(begin), rows, err)
}
