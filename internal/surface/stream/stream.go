package stream

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/user/termdemo/internal/markup"
	"github.com/user/termdemo/internal/surface"
)

const (
	clearLine   = "\r\x1b[2K"
	clearScreen = "\x1b[2J\x1b[H"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

type row struct {
	id     surface.LineID
	text   string
	cursor bool
}

// Surface keeps a model of the rows it has written. The terminal cursor
// always rests at the end of the last row; lines wider than the terminal
// are assumed not to wrap.
type Surface struct {
	mu         sync.Mutex
	w          io.Writer
	rows       []row
	nextID     surface.LineID
	width      int
	cursorShow bool
	err        error
}

var _ surface.Surface = (*Surface)(nil)

func New(w io.Writer) *Surface {
	return &Surface{w: w, width: surface.DefaultProgressWidth, cursorShow: true}
}

// SetProgressWidth overrides the progress bar width.
func (s *Surface) SetProgressWidth(n int) {
	s.mu.Lock()
	s.width = n
	s.mu.Unlock()
}

func (s *Surface) ProgressWidth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

func (s *Surface) AppendLine(line surface.Line) surface.LineID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r := row{id: s.nextID, text: markup.ToANSI(line.Text), cursor: line.Cursor}

	var b strings.Builder
	if len(s.rows) > 0 {
		b.WriteString("\r\n")
	}
	b.WriteString(r.text)
	s.rows = append(s.rows, r)
	s.syncCursor(&b)
	s.write(b.String())
	return r.id
}

func (s *Surface) UpdateLine(id surface.LineID, line surface.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return
	}
	old := s.rows[idx].text
	text := markup.ToANSI(line.Text)
	s.rows[idx].text = text
	s.rows[idx].cursor = line.Cursor

	var b strings.Builder
	up := len(s.rows) - 1 - idx
	switch {
	case up == 0 && strings.HasPrefix(text, old):
		b.WriteString(text[len(old):])
	case up == 0:
		b.WriteString(clearLine + text)
	default:
		fmt.Fprintf(&b, "\x1b[%dA%s%s\x1b[%dB\r%s", up, clearLine, text, up, s.rows[len(s.rows)-1].text)
	}
	s.syncCursor(&b)
	s.write(b.String())
}

func (s *Surface) RemoveLine(id surface.LineID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return
	}
	oldCount := len(s.rows)
	s.rows = append(s.rows[:idx], s.rows[idx+1:]...)

	var b strings.Builder
	s.repaint(&b, idx, oldCount)
	s.syncCursor(&b)
	s.write(b.String())
}

// repaint redraws rows from index from onward after the row count shrank
// from oldCount, clearing the stale screen rows left below.
func (s *Surface) repaint(b *strings.Builder, from, oldCount int) {
	if up := oldCount - 1 - from; up > 0 {
		fmt.Fprintf(b, "\x1b[%dA", up)
	}
	cur := from
	for i := from; i < len(s.rows); i++ {
		if i > from {
			b.WriteString("\n")
			cur++
		}
		b.WriteString(clearLine + s.rows[i].text)
	}

	newCount := len(s.rows)
	for r := newCount; r < oldCount; r++ {
		if r > cur {
			b.WriteString("\n")
			cur++
		}
		b.WriteString(clearLine)
	}

	if newCount == 0 {
		return
	}
	if last := newCount - 1; cur > last {
		fmt.Fprintf(b, "\x1b[%dA", cur-last)
	}
	b.WriteString("\r" + s.rows[newCount-1].text)
}

// ScrollToBottom is a no-op: a terminal follows its own output.
func (s *Surface) ScrollToBottom() {}

func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	s.write(clearScreen)
}

// Finish ends the demo on a fresh line with the cursor visible.
func (s *Surface) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	if len(s.rows) > 0 {
		b.WriteString("\r\n")
	}
	b.WriteString(showCursor)
	s.cursorShow = true
	s.rows = nil
	s.write(b.String())
	return s.err
}

// Err returns the first write error, if any.
func (s *Surface) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Surface) index(id surface.LineID) int {
	for i := range s.rows {
		if s.rows[i].id == id {
			return i
		}
	}
	return -1
}

// syncCursor shows the terminal cursor only while the last row asks for it.
func (s *Surface) syncCursor(b *strings.Builder) {
	want := len(s.rows) > 0 && s.rows[len(s.rows)-1].cursor
	if want == s.cursorShow {
		return
	}
	s.cursorShow = want
	if want {
		b.WriteString(showCursor)
	} else {
		b.WriteString(hideCursor)
	}
}

func (s *Surface) write(data string) {
	if s.err != nil || data == "" {
		return
	}
	if _, err := io.WriteString(s.w, data); err != nil {
		s.err = err
	}
}
