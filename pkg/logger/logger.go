package logger

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Deduplicator collapses bursts of identical log lines (fresh-record
// hits during batch parsing, mostly) into one line with a counter.
type Deduplicator struct {
	mu         sync.Mutex
	lastMsg    string
	count      int
	flushDelay time.Duration
	timer      *time.Timer
	printf     func(format string, args ...any)
}

func NewDeduplicator(flushDelay time.Duration) *Deduplicator {
	return &Deduplicator{
		flushDelay: flushDelay,
		printf:     log.Printf,
	}
}

var std = NewDeduplicator(2 * time.Second)

// Dedup logs through the package-level deduplicator.
func Dedup(format string, args ...any) {
	std.Printf(format, args...)
}

func (d *Deduplicator) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	d.mu.Lock()
	defer d.mu.Unlock()

	if msg == d.lastMsg {
		d.count++
		d.resetTimer()
		return
	}

	d.flush()
	d.lastMsg = msg
	d.count = 1
	d.resetTimer()
}

func (d *Deduplicator) resetTimer() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.flushDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.flush()
	})
}

func (d *Deduplicator) flush() {
	if d.count == 0 {
		return
	}
	if d.count == 1 {
		d.printf("%s", d.lastMsg)
	} else {
		d.printf("%s (%d)", d.lastMsg, d.count)
	}
	d.count = 0
	d.lastMsg = ""
}
