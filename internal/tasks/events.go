package tasks

import (
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/savedl/internal/models"
)

// EventKind distinguishes the messages delivered to a [Sink].
type EventKind int

const (
	LogEvent EventKind = iota
	ProgressEvent
	FinishedEvent
)

func (k EventKind) String() string {
	switch k {
	case LogEvent:
		return "log"
	case ProgressEvent:
		return "progress"
	case FinishedEvent:
		return "finished"
	default:
		return ""
	}
}

// Level is the severity of a log event.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Symbol is the prefix shown before log lines of this level.
func (l Level) Symbol() string {
	switch l {
	case LevelSuccess:
		return "✓"
	case LevelWarning:
		return "!"
	case LevelError:
		return "✗"
	default:
		return "•"
	}
}

// Event is an immutable message from the engine to the presentation layer.
type Event struct {
	Kind      EventKind
	Time      time.Time
	Level     Level
	Message   string
	Progress  models.Progress // set on progress and finished events
	Success   bool            // set on finished events
	Cancelled bool            // set on finished events
}

// Sink receives engine events in order. Send must not block the caller for long.
type Sink interface {
	Send(Event)
}

// FuncSink adapts a function to [Sink].
type FuncSink func(Event)

func (f FuncSink) Send(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = FuncSink(func(Event) {})

// ChannelSink buffers events without bound and delivers them in order on [ChannelSink.Events].
//
// Send never blocks, so a slow reader cannot stall the dispatcher.
type ChannelSink struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	notify chan struct{}
	out    chan Event
}

// NewChannelSink starts the delivery goroutine. Call Close once the batch is over.
func NewChannelSink() *ChannelSink {
	s := &ChannelSink{notify: make(chan struct{}, 1), out: make(chan Event)}
	go s.pump()
	return s
}

// Send queues e. Events sent after Close are dropped.
func (s *ChannelSink) Send(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.wake()
}

// Close flushes queued events and then closes the events channel.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

// Events returns the delivery channel.
func (s *ChannelSink) Events() <-chan Event {
	return s.out
}

func (s *ChannelSink) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *ChannelSink) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		queue, closed := s.queue, s.closed
		s.queue = nil
		s.mu.Unlock()

		for _, e := range queue {
			s.out <- e
		}
		if len(queue) == 0 {
			if closed {
				return
			}
			<-s.notify
		}
	}
}

func logEvent(level Level, format string, args ...any) Event {
	return Event{Kind: LogEvent, Time: time.Now(), Level: level, Message: fmt.Sprintf(format, args...)}
}

func detectedEvent(d models.Dialect) Event {
	return logEvent(LevelInfo, "Using spotdl %s", d)
}

func startedEvent(total, workers int) Event {
	return logEvent(LevelInfo, "Downloading %d songs with %d workers...", total, workers)
}

func cancellingEvent() Event {
	return logEvent(LevelWarning, "Cancelling...")
}

// outcomeEvent describes a single finished item. Cancelled items are not logged individually.
func outcomeEvent(o models.Outcome) (Event, bool) {
	switch o.Kind {
	case models.Downloaded:
		return logEvent(LevelSuccess, "Downloaded: %s", o.Item.URL), true
	case models.Skipped:
		return logEvent(LevelInfo, "Already exists: %s", o.Item.URL), true
	case models.NotFound:
		info := o.Detail
		if info == "" {
			info = o.Item.URL
		}
		return logEvent(LevelWarning, "Could not find: %s", info), true
	case models.Failed:
		if o.Detail != "" {
			return logEvent(LevelError, "Failed: %s (%s)", o.Item.URL, o.Detail), true
		}
		return logEvent(LevelError, "Failed: %s", o.Item.URL), true
	}
	return Event{}, false
}

func progressEvent(p models.Progress) Event {
	return Event{
		Kind:     ProgressEvent,
		Time:     time.Now(),
		Level:    LevelInfo,
		Message:  ProgressLine(p),
		Progress: p,
	}
}

func finishedEvent(r *BatchResult) Event {
	level := LevelSuccess
	switch {
	case r.Cancelled:
		level = LevelWarning
	case !r.Success:
		level = LevelError
	}
	return Event{
		Kind:      FinishedEvent,
		Time:      r.FinishedAt,
		Level:     level,
		Message:   r.Summary,
		Progress:  r.Progress,
		Success:   r.Success,
		Cancelled: r.Cancelled,
	}
}

// ProgressLine renders the status line shown while a batch runs.
func ProgressLine(p models.Progress) string {
	return fmt.Sprintf("Progress: %d/%d (%d new, %d existed)", p.Completed, p.Total, p.Downloaded, p.Skipped)
}
