package recorder

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRecorder(w io.Writer, opts Options) (*Recorder, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	return newRecorder(w, opts, clock.now), clock
}

func TestRecorderTimestampsAndForwards(t *testing.T) {
	var term bytes.Buffer
	rec, clock := newTestRecorder(&term, Options{Title: "demo"})

	clock.advance(500 * time.Millisecond)
	if _, err := rec.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	clock.advance(250 * time.Millisecond)
	if _, err := rec.Write([]byte("\r\nworld")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if term.String() != "hello\r\nworld" {
		t.Fatalf("forwarded output = %q", term.String())
	}
	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("len(Events()) = %d, want 2", len(events))
	}
	if events[0].Time != 0.5 || events[1].Time != 0.75 || events[1].Type != EventOutput {
		t.Fatalf("events = %+v", events)
	}
	if rec.Duration() != 750*time.Millisecond {
		t.Fatalf("Duration() = %s", rec.Duration())
	}

	h := rec.Header()
	if h.Version != 2 || h.Width != 80 || h.Height != 24 || h.Title != "demo" || h.Timestamp != 1700000000 {
		t.Fatalf("Header() = %+v", h)
	}
}

func TestRecorderIdleLimit(t *testing.T) {
	rec, clock := newTestRecorder(nil, Options{IdleLimit: time.Second})

	clock.advance(200 * time.Millisecond)
	rec.Write([]byte("a"))
	clock.advance(10 * time.Second)
	rec.Write([]byte("b"))
	clock.advance(300 * time.Millisecond)
	rec.Write([]byte("c"))

	events := rec.Events()
	want := []float64{0.2, 1.2, 1.5}
	for i, ev := range events {
		if ev.Time != want[i] {
			t.Fatalf("event %d time = %v, want %v", i, ev.Time, want[i])
		}
	}
	if rec.Header().IdleTimeLimit != 1 {
		t.Fatalf("IdleTimeLimit = %v", rec.Header().IdleTimeLimit)
	}
}

func TestEmptyWriteIsNotRecorded(t *testing.T) {
	rec, _ := newTestRecorder(nil, Options{})
	if n, err := rec.Write(nil); n != 0 || err != nil {
		t.Fatalf("Write(nil) = %d, %v", n, err)
	}
	if len(rec.Events()) != 0 || rec.Duration() != 0 {
		t.Fatal("empty write produced an event")
	}
}

func TestWriteCastFormat(t *testing.T) {
	rec, clock := newTestRecorder(nil, Options{Width: 100, Height: 30})
	clock.advance(time.Second)
	rec.Write([]byte("\x1b[32m<ok>\x1b[0m"))

	var buf bytes.Buffer
	if err := rec.WriteCast(&buf); err != nil {
		t.Fatalf("WriteCast() error = %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("cast has %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], `{"version":2,"width":100,"height":30,`) {
		t.Fatalf("header line = %s", lines[0])
	}
	if lines[1] != `[1,"o","\u001b[32m<ok>\u001b[0m"]` {
		t.Fatalf("event line = %s", lines[1])
	}
}

func TestEventMarshalKeepsMarkupCharacters(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"angle brackets", Event{Time: 0.5, Type: EventOutput, Data: "<ok>"}, `[0.5,"o","<ok>"]`},
		{"ampersand", Event{Time: 2, Type: EventOutput, Data: "a && b"}, `[2,"o","a && b"]`},
		{"escape sequence", Event{Time: 0, Type: EventOutput, Data: "\x1b[0m"}, `[0,"o","\u001b[0m"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Fatalf("Marshal() = %s, want %s", data, tt.want)
			}
			var back Event
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if back != tt.event {
				t.Fatalf("round trip = %+v, want %+v", back, tt.event)
			}
		})
	}
}

func TestSaveAndReadCast(t *testing.T) {
	rec, clock := newTestRecorder(nil, Options{Title: "saved"})
	clock.advance(100 * time.Millisecond)
	rec.Write([]byte("one"))
	clock.advance(100 * time.Millisecond)
	rec.Write([]byte("two"))

	path := filepath.Join(t.TempDir(), "demo.cast")
	if err := rec.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	h, events, err := ReadCast(f)
	if err != nil {
		t.Fatalf("ReadCast() error = %v", err)
	}
	if h.Title != "saved" || h.Duration != 0.2 {
		t.Fatalf("header = %+v", h)
	}
	if len(events) != 2 || events[0].Data != "one" || events[1].Time != 0.2 {
		t.Fatalf("events = %+v", events)
	}
}

func TestReadCastRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bad header", "not json\n"},
		{"wrong version", `{"version":1,"width":80,"height":24}` + "\n"},
		{"short event", `{"version":2,"width":80,"height":24}` + "\n" + `[1,"o"]` + "\n"},
		{"bad time", `{"version":2,"width":80,"height":24}` + "\n" + `["x","o","a"]` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadCast(strings.NewReader(tt.input))
			if !errors.Is(err, ErrInvalidCast) {
				t.Fatalf("ReadCast() error = %v, want ErrInvalidCast", err)
			}
		})
	}
}

func TestRecorderClearScreenAtZero(t *testing.T) {
	var term bytes.Buffer
	rec, clock := newTestRecorder(&term, Options{ClearScreen: true})
	clock.advance(250 * time.Millisecond)
	rec.Write([]byte("Hello"))

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Time != 0 || events[0].Data != "\x1b[2J\x1b[H" || events[0].Type != EventOutput {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Time != 0.25 || events[1].Data != "Hello" {
		t.Fatalf("second event = %+v", events[1])
	}
	if term.String() != "Hello" {
		t.Fatalf("forwarded %q, want only the written data", term.String())
	}
}
