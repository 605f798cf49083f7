package server

import (
	"bytes"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "notice", "warning", "error"
}

var (
	ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	levelField = regexp.MustCompile(`^\[[^\]]*\] \[[^\]]*\] \[(\w+)\] `)
)

// Console is a log sink that keeps the most recent lines for the web UI
type Console struct {
	mu       sync.Mutex
	limit    int
	messages []ConsoleMessage
	partial  []byte
}

// NewConsole creates a console keeping at most limit messages
func NewConsole(limit int) *Console {
	if limit < 1 {
		limit = 1
	}
	return &Console{limit: limit}
}

// Write implements io.Writer. Complete lines become messages; a trailing
// partial line waits for the next write.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.partial = append(c.partial, p...)
	for {
		i := bytes.IndexByte(c.partial, '\n')
		if i < 0 {
			break
		}
		line := ansiEscape.ReplaceAllString(string(c.partial[:i]), "")
		c.partial = c.partial[i+1:]
		if line != "" {
			c.append(line)
		}
	}
	return len(p), nil
}

func (c *Console) append(line string) {
	level := "info"
	if m := levelField.FindStringSubmatch(line); m != nil {
		level = strings.ToLower(m[1])
	}
	c.messages = append(c.messages, ConsoleMessage{Message: line, Timestamp: time.Now(), Level: level})
	if over := len(c.messages) - c.limit; over > 0 {
		c.messages = append(c.messages[:0], c.messages[over:]...)
	}
}

// Messages returns a copy of the retained messages, oldest first
func (c *Console) Messages() []ConsoleMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ConsoleMessage, len(c.messages))
	copy(out, c.messages)
	return out
}
