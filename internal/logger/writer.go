package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// The bot emits a handful of log lines per update, so the sink keeps small
// buffers and pushes every line out as soon as it lands. Decoupling matters
// more than throughput here: a slow disk must never stall update handling.
const (
	sinkBufSize   = 8 * 1024
	sinkQueueSize = 64
)

// lineSink fans formatted log lines out to every destination from a single
// background goroutine.
type lineSink struct {
	lines   chan []byte
	flushes chan chan error
	stopped chan struct{}
	once    sync.Once

	mu    sync.Mutex
	dests []*bufio.Writer
	fail  error
}

func newLineSink(writers []io.Writer) *lineSink {
	dests := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w == nil {
			continue
		}
		dests = append(dests, bufio.NewWriterSize(w, sinkBufSize))
	}
	s := &lineSink{
		lines:   make(chan []byte, sinkQueueSize),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
		dests:   dests,
	}
	go s.run()
	return s
}

func (s *lineSink) run() {
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				s.flushDests()
				close(s.stopped)
				return
			}
			s.writeLine(line)
		case ack := <-s.flushes:
			s.drainQueued()
			ack <- s.flushDests()
		}
	}
}

// Write hands the line to the background goroutine. When the queue is full
// the send blocks rather than dropping: losing log lines is worse than a
// short stall at this volume.
func (s *lineSink) Write(p []byte) error {
	if err := s.failure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	line := make([]byte, len(p))
	copy(line, p)
	s.lines <- line
	return nil
}

// Flush writes out everything queued so far and forces the destinations to
// their underlying writers.
func (s *lineSink) Flush() error {
	if err := s.failure(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	s.flushes <- ack
	return <-ack
}

// Close drains the queue, flushes the destinations and reports the first
// write error seen over the sink's lifetime.
func (s *lineSink) Close() error {
	s.once.Do(func() {
		close(s.lines)
	})
	<-s.stopped
	return s.failure()
}

func (s *lineSink) writeLine(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dest := range s.dests {
		if _, err := dest.Write(line); err != nil {
			s.recordFailLocked(err)
			return
		}
		if err := dest.Flush(); err != nil {
			s.recordFailLocked(err)
			return
		}
	}
}

// drainQueued empties whatever is already sitting in the queue so a Flush
// covers lines written just before it.
func (s *lineSink) drainQueued() {
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				return
			}
			s.writeLine(line)
		default:
			return
		}
	}
}

func (s *lineSink) flushDests() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, dest := range s.dests {
		if err := dest.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *lineSink) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail
}

func (s *lineSink) recordFailLocked(err error) {
	if err != nil && s.fail == nil {
		s.fail = err
	}
}
