package stream

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/user/termdemo/internal/surface"
)

// screen is a tiny terminal model: enough of VT100 to check what the
// surface leaves on screen.
type screen struct {
	rows [][]rune
	r, c int
}

func render(data string) []string {
	s := &screen{rows: [][]rune{{}}}
	s.feed(data)
	out := make([]string, len(s.rows))
	for i, row := range s.rows {
		out[i] = strings.TrimRight(string(row), " ")
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func (s *screen) feed(data string) {
	runes := []rune(data)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '\x1b' && i+1 < len(runes) && runes[i+1] == '[':
			j := i + 2
			for j < len(runes) && (runes[j] < '@' || runes[j] > '~') {
				j++
			}
			if j >= len(runes) {
				return
			}
			s.csi(string(runes[i+2:j]), runes[j])
			i = j
		case ch == '\r':
			s.c = 0
		case ch == '\n':
			s.r++
			s.ensure()
		default:
			s.ensure()
			for len(s.rows[s.r]) <= s.c {
				s.rows[s.r] = append(s.rows[s.r], ' ')
			}
			s.rows[s.r][s.c] = ch
			s.c++
		}
	}
}

func (s *screen) csi(params string, final rune) {
	n := 1
	if v, err := strconv.Atoi(strings.TrimPrefix(params, "?")); err == nil {
		n = v
	}
	switch final {
	case 'A':
		s.r -= n
		if s.r < 0 {
			s.r = 0
		}
	case 'B':
		s.r += n
		s.ensure()
	case 'K':
		s.rows[s.r] = nil
	case 'J':
		s.rows = [][]rune{{}}
	case 'H':
		s.r, s.c = 0, 0
	}
}

func (s *screen) ensure() {
	for len(s.rows) <= s.r {
		s.rows = append(s.rows, nil)
	}
}

func assertScreen(t *testing.T, buf *bytes.Buffer, want ...string) {
	t.Helper()
	got := render(buf.String())
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("screen =\n%q\nwant\n%q", got, want)
	}
}

func TestAppendAndTypeOnLastLine(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)

	id := s.AppendLine(surface.Line{Text: "~ > ", Cursor: true})
	s.UpdateLine(id, surface.Line{Text: "~ > l", Cursor: true})
	s.UpdateLine(id, surface.Line{Text: "~ > ls", Cursor: true})
	s.AppendLine(surface.Line{Text: "file.txt"})

	assertScreen(t, &buf, "~ > ls", "file.txt")
	if !strings.Contains(buf.String(), "~ > ls") {
		t.Fatalf("expected incremental typing to keep the prompt intact: %q", buf.String())
	}
}

func TestColorMarkupBecomesANSI(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	s.AppendLine(surface.Line{Text: "[green]ok[/green]"})
	if !strings.Contains(buf.String(), "\x1b[32mok\x1b[0m") {
		t.Fatalf("missing SGR sequence in %q", buf.String())
	}
	assertScreen(t, &buf, "ok")
}

func TestUpdateEarlierLine(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	q := s.AppendLine(surface.Line{Text: "? pick"})
	s.AppendLine(surface.Line{Text: "> a"})
	s.AppendLine(surface.Line{Text: "  b"})
	s.UpdateLine(q, surface.Line{Text: "? pick one"})
	assertScreen(t, &buf, "? pick one", "> a", "  b")
}

func TestRemoveLines(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	a := s.AppendLine(surface.Line{Text: "alpha"})
	b := s.AppendLine(surface.Line{Text: "bravo"})
	c := s.AppendLine(surface.Line{Text: "charlie"})
	d := s.AppendLine(surface.Line{Text: "delta"})

	s.RemoveLine(b)
	assertScreen(t, &buf, "alpha", "charlie", "delta")

	s.RemoveLine(d)
	assertScreen(t, &buf, "alpha", "charlie")

	s.AppendLine(surface.Line{Text: "echo"})
	assertScreen(t, &buf, "alpha", "charlie", "echo")

	s.RemoveLine(a)
	s.RemoveLine(c)
	assertScreen(t, &buf, "echo")

	s.UpdateLine(b, surface.Line{Text: "ghost"})
	assertScreen(t, &buf, "echo")
}

func TestRemoveOnlyLine(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	id := s.AppendLine(surface.Line{Text: "spinning"})
	s.RemoveLine(id)
	s.AppendLine(surface.Line{Text: "after"})
	assertScreen(t, &buf, "after")
}

func TestClearAndFinish(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	s.AppendLine(surface.Line{Text: "old", Cursor: true})
	s.Clear()
	s.AppendLine(surface.Line{Text: "new"})
	assertScreen(t, &buf, "new")

	if err := s.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if !strings.HasSuffix(buf.String(), showCursor) {
		t.Fatalf("Finish should restore the cursor: %q", buf.String())
	}
}

func TestCursorVisibilityFollowsLastLine(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf)
	s.AppendLine(surface.Line{Text: "out"})
	if !strings.Contains(buf.String(), hideCursor) {
		t.Fatalf("expected cursor hidden for a plain line: %q", buf.String())
	}
	buf.Reset()
	s.AppendLine(surface.Line{Text: "~ >", Cursor: true})
	if !strings.Contains(buf.String(), showCursor) {
		t.Fatalf("expected cursor shown for a prompt line: %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriteErrorIsSticky(t *testing.T) {
	s := New(failingWriter{})
	s.AppendLine(surface.Line{Text: "x"})
	s.AppendLine(surface.Line{Text: "y"})
	if err := s.Err(); err == nil || err.Error() != "closed" {
		t.Fatalf("Err() = %v, want closed", err)
	}
}

func TestProgressWidth(t *testing.T) {
	s := New(&bytes.Buffer{})
	if got := surface.ProgressWidth(s); got != 30 {
		t.Fatalf("ProgressWidth() = %d, want 30", got)
	}
	s.SetProgressWidth(12)
	if got := surface.ProgressWidth(s); got != 12 {
		t.Fatalf("ProgressWidth() = %d, want 12", got)
	}
}
