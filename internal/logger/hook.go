package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// AsyncHook writes formatted entries to its writers from a background goroutine
// so slow log files never block request handling. When the queue is full the
// entry is dropped.
type AsyncHook struct {
	writers []io.Writer
	entries chan *logrus.Entry
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewAsyncHookWithWriters starts the writer goroutine. bufferSize <= 0 means 1000.
func NewAsyncHookWithWriters(writers []io.Writer, bufferSize int) *AsyncHook {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	h := &AsyncHook{
		writers: writers,
		entries: make(chan *logrus.Entry, bufferSize),
	}
	h.wg.Add(1)
	go h.processEntries()
	return h
}

func (h *AsyncHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *AsyncHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		// After Close write synchronously.
		h.write(entry)
		return nil
	}

	select {
	case h.entries <- snapshot(entry):
	default:
	}
	return nil
}

// snapshot copies the fields the formatter reads; logrus reuses entry after Fire returns.
func snapshot(entry *logrus.Entry) *logrus.Entry {
	data := make(logrus.Fields, len(entry.Data))
	for k, v := range entry.Data {
		data[k] = v
	}
	return &logrus.Entry{
		Logger:  entry.Logger,
		Data:    data,
		Time:    entry.Time,
		Level:   entry.Level,
		Caller:  entry.Caller,
		Message: entry.Message,
		Context: entry.Context,
	}
}

func (h *AsyncHook) processEntries() {
	defer h.wg.Done()
	for entry := range h.entries {
		h.write(entry)
	}
}

func (h *AsyncHook) write(entry *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			// Cannot log through logrus here without recursing.
			fmt.Fprintf(os.Stderr, "[LOGGER PANIC] %v\n", r)
			debug.PrintStack()
		}
	}()

	if filtered, ok := entry.Data[filteredKey].(bool); ok && filtered {
		return
	}
	delete(entry.Data, filteredKey)

	data, err := format(entry)
	if err != nil {
		return
	}
	for _, w := range h.writers {
		_, _ = w.Write(data)
	}
}

// Close drains the queue and stops the goroutine.
func (h *AsyncHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.entries)
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

func format(entry *logrus.Entry) ([]byte, error) {
	if entry.Logger != nil && entry.Logger.Formatter != nil {
		return entry.Logger.Formatter.Format(entry)
	}
	line, err := entry.String()
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}
