package recorder

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"
)

const (
	Version       = 2
	DefaultWidth  = 80
	DefaultHeight = 24

	clearScreen = "\x1b[2J\x1b[H"
)

var ErrInvalidCast = errors.New("invalid asciicast")

type EventType string

const (
	EventOutput EventType = "o"
	EventInput  EventType = "i"
)

// Header is the first line of an asciicast v2 file.
// See https://github.com/asciinema/asciinema/blob/develop/doc/asciicast-v2.md
type Header struct {
	Version       int               `json:"version"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	Timestamp     int64             `json:"timestamp,omitempty"`
	Duration      float64           `json:"duration,omitempty"`
	IdleTimeLimit float64           `json:"idle_time_limit,omitempty"`
	Title         string            `json:"title,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
}

// Event is one chunk of output at Time seconds from the start.
type Event struct {
	Time float64
	Type EventType
	Data string
}

// MarshalJSON writes the [time, type, data] triple. Terminal output keeps
// <, > and & as is.
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]any{e.Time, e.Type, e.Data}); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("%w: event has %d fields, want 3", ErrInvalidCast, len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Time); err != nil {
		return fmt.Errorf("%w: event time: %v", ErrInvalidCast, err)
	}
	if err := json.Unmarshal(raw[1], &e.Type); err != nil {
		return fmt.Errorf("%w: event type: %v", ErrInvalidCast, err)
	}
	if err := json.Unmarshal(raw[2], &e.Data); err != nil {
		return fmt.Errorf("%w: event data: %v", ErrInvalidCast, err)
	}
	return nil
}

type Options struct {
	Width  int
	Height int
	Title  string
	// IdleLimit caps the recorded gap between two events. Zero keeps
	// real timing.
	IdleLimit time.Duration
	Env       map[string]string
	// ClearScreen opens the recording with a clear-screen event at t=0.
	// It is recorded only, not written to the underlying writer.
	ClearScreen bool
}

// Recorder is an io.Writer that timestamps every write and forwards it to
// an optional underlying writer.
type Recorder struct {
	mu         sync.Mutex
	w          io.Writer
	header     Header
	idleLimit  time.Duration
	now        func() time.Time
	start      time.Time
	last       time.Time
	compressed time.Duration
	events     []Event
}

func New(w io.Writer, opts Options) *Recorder {
	return newRecorder(w, opts, time.Now)
}

func newRecorder(w io.Writer, opts Options, now func() time.Time) *Recorder {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	start := now()
	h := Header{
		Version:   Version,
		Width:     opts.Width,
		Height:    opts.Height,
		Timestamp: start.Unix(),
		Title:     opts.Title,
		Env:       opts.Env,
	}
	if opts.IdleLimit > 0 {
		h.IdleTimeLimit = opts.IdleLimit.Seconds()
	}
	r := &Recorder{
		w:         w,
		header:    h,
		idleLimit: opts.IdleLimit,
		now:       now,
		start:     start,
		last:      start,
	}
	if opts.ClearScreen {
		r.events = append(r.events, Event{Time: 0, Type: EventOutput, Data: clearScreen})
	}
	return r
}

func (r *Recorder) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	now := r.now()
	if gap := now.Sub(r.last); r.idleLimit > 0 && gap > r.idleLimit {
		r.compressed += gap - r.idleLimit
	}
	r.last = now
	elapsed := now.Sub(r.start) - r.compressed
	r.events = append(r.events, Event{Time: seconds(elapsed), Type: EventOutput, Data: string(p)})
	r.mu.Unlock()

	if r.w == nil {
		return len(p), nil
	}
	return r.w.Write(p)
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Duration is the recorded time of the last event.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return 0
	}
	return time.Duration(r.events[len(r.events)-1].Time * float64(time.Second))
}

func (r *Recorder) Header() Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.header
	if n := len(r.events); n > 0 {
		h.Duration = r.events[n-1].Time
	}
	return h
}

func (r *Recorder) WriteCast(w io.Writer) error {
	return WriteCast(w, r.Header(), r.Events())
}

// Save writes the cast to path, replacing any existing file.
func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cast file %q: %w", path, err)
	}
	if err := r.WriteCast(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close cast file %q: %w", path, err)
	}
	return nil
}

// WriteCast writes a header line followed by one line per event.
func WriteCast(w io.Writer, h Header, events []Event) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("failed to write cast header: %w", err)
	}
	for i, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to write cast event %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write cast: %w", err)
	}
	return nil
}

// ReadCast parses an asciicast v2 stream.
func ReadCast(r io.Reader) (Header, []Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Header{}, nil, fmt.Errorf("failed to read cast: %w", err)
		}
		return Header{}, nil, fmt.Errorf("%w: missing header", ErrInvalidCast)
	}
	var h Header
	if err := json.Unmarshal(sc.Bytes(), &h); err != nil {
		return Header{}, nil, fmt.Errorf("%w: header: %v", ErrInvalidCast, err)
	}
	if h.Version != Version {
		return Header{}, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidCast, h.Version)
	}

	events := []Event{}
	line := 1
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return Header{}, nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return Header{}, nil, fmt.Errorf("failed to read cast: %w", err)
	}
	return h, events, nil
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1e6) / 1e6
}
