package server

import (
	"fmt"
	"testing"
)

func TestConsoleBasicLogging(t *testing.T) {
	console := NewConsole(10)
	fmt.Fprintf(console, "\x1b[32m[12:00:00.000] [renderer] [NOTICE]\x1b[0m Render completed\n")

	messages := console.Messages()
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	expected := "[12:00:00.000] [renderer] [NOTICE] Render completed"
	if messages[0].Message != expected {
		t.Errorf("Expected message '%s', got '%s'", expected, messages[0].Message)
	}
	if messages[0].Level != "notice" {
		t.Errorf("Expected level 'notice', got '%s'", messages[0].Level)
	}
	if messages[0].Timestamp.IsZero() {
		t.Error("Expected a timestamp")
	}
}

func TestConsolePartialLines(t *testing.T) {
	console := NewConsole(10)
	fmt.Fprint(console, "first ha")
	if n := len(console.Messages()); n != 0 {
		t.Fatalf("Expected no messages before newline, got %d", n)
	}
	fmt.Fprint(console, "lf\nsecond\n")

	messages := console.Messages()
	if len(messages) != 2 || messages[0].Message != "first half" || messages[1].Message != "second" {
		t.Errorf("Expected [first half, second], got %+v", messages)
	}
	if messages[0].Level != "info" {
		t.Errorf("Expected default level 'info', got '%s'", messages[0].Level)
	}
}

func TestConsoleKeepsMostRecent(t *testing.T) {
	console := NewConsole(3)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(console, "Message %d\n", i)
	}

	messages := console.Messages()
	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}
	for i, msg := range messages {
		expected := fmt.Sprintf("Message %d", i+3)
		if msg.Message != expected {
			t.Errorf("Expected '%s', got '%s'", expected, msg.Message)
		}
	}
}
