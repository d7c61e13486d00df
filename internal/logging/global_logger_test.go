package logging

import (
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestLogFormatterUsesAttemptIDAndFieldOrder(t *testing.T) {
	entry := &log.Entry{
		Logger:  log.New(),
		Time:    time.Date(2026, 3, 2, 10, 14, 4, 0, time.UTC),
		Level:   log.InfoLevel,
		Message: "hop succeeded\n",
		Data: log.Fields{
			"attempt": "3f9c1a2b-0000-4000-8000-000000000000",
			"status":  200,
			"hop":     "xsts",
			"ignored": "x",
		},
	}

	out, err := (&LogFormatter{}).Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "[2026-03-02 10:14:04] [3f9c1a2b] [info ] hop succeeded hop=xsts status=200\n"
	if string(out) != want {
		t.Fatalf("Format() = %q, want %q", out, want)
	}
}

func TestLogFormatterPlaceholderID(t *testing.T) {
	entry := &log.Entry{Logger: log.New(), Level: log.WarnLevel, Message: "m", Data: log.Fields{}}
	out, err := (&LogFormatter{}).Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(string(out), "[--------] [warn ]") {
		t.Fatalf("Format() = %q", out)
	}
}
