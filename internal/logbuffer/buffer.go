// Package logbuffer keeps the most recent log events in memory for the API.
package logbuffer

import (
	"encoding/json"
	"sync"
	"time"
)

// LogEntry is one decoded zerolog event.
type LogEntry struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Interface string    `json:"interface,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// RingBuffer is a fixed-size, thread-safe buffer of log entries. It is an
// io.Writer for zerolog JSON output.
type RingBuffer struct {
	entries []LogEntry
	size    int
	start   int
	count   int
	mu      sync.Mutex
}

func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Write decodes one JSON event. Lines that are not JSON are kept as the message.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	var entry LogEntry
	if err := json.Unmarshal(p, &entry); err != nil {
		entry = LogEntry{Time: time.Now(), Message: string(p)}
	}
	rb.Add(entry)
	return len(p), nil
}

func (rb *RingBuffer) Add(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.entries[(rb.start+rb.count)%rb.size] = entry
	if rb.count < rb.size {
		rb.count++
	} else {
		rb.start = (rb.start + 1) % rb.size
	}
}

// GetAll returns every entry, oldest first.
func (rb *RingBuffer) GetAll() []LogEntry {
	return rb.GetFiltered("", "", 0)
}

// GetFiltered returns the newest limit entries matching level and interface
// (empty matches all), oldest first. A limit of 0 means no limit.
func (rb *RingBuffer) GetFiltered(level, intf string, limit int) []LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	var filtered []LogEntry
	for i := rb.count - 1; i >= 0; i-- {
		entry := rb.entries[(rb.start+i)%rb.size]
		if level != "" && entry.Level != level {
			continue
		}
		if intf != "" && entry.Interface != intf {
			continue
		}
		filtered = append(filtered, entry)
		if limit > 0 && len(filtered) >= limit {
			break
		}
	}
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}
	return filtered
}
