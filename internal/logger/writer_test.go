package logger

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestLineSinkFlushCoversQueuedLines(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := newLineSink([]io.Writer{buf})
	for i := 0; i < 10; i++ {
		if err := sink.Write([]byte("line\n")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := strings.Count(buf.String(), "line"); got != 10 {
		t.Fatalf("flushed %d lines, want 10", got)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestLineSinkCloseDrainsQueue(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := newLineSink([]io.Writer{buf})
	if err := sink.Write([]byte("last\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !strings.Contains(buf.String(), "last") {
		t.Fatal("line written before Close was lost")
	}
}

func TestLineSinkFanout(t *testing.T) {
	first := &bytes.Buffer{}
	second := &bytes.Buffer{}
	sink := newLineSink([]io.Writer{first, second})
	if err := sink.Write([]byte("both\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if first.String() != "both\n" || second.String() != "both\n" {
		t.Fatalf("fanout mismatch: %q / %q", first.String(), second.String())
	}
}
