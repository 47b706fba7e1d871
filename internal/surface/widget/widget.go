package widget

import (
	"sync"

	"github.com/user/termdemo/internal/markup"
	"github.com/user/termdemo/internal/surface"
)

const progressWidth = 20

type OpKind string

const (
	OpAppend OpKind = "append"
	OpUpdate OpKind = "update"
	OpRemove OpKind = "remove"
	OpScroll OpKind = "scroll"
	OpClear  OpKind = "clear"
)

// Op is one change to the line model. HTML is the markup-rendered text.
type Op struct {
	Op     OpKind         `json:"op"`
	ID     surface.LineID `json:"id,omitempty"`
	HTML   string         `json:"html,omitempty"`
	Cursor bool           `json:"cursor,omitempty"`
}

// Publisher receives ops in the order they were applied.
type Publisher interface {
	Publish(op Op)
}

// Row is a line as held by the widget.
type Row struct {
	ID     surface.LineID `json:"id"`
	Text   string         `json:"text"`
	HTML   string         `json:"html"`
	Cursor bool           `json:"cursor,omitempty"`
}

type Widget struct {
	mu     sync.Mutex
	rows   []Row
	nextID surface.LineID
	pub    Publisher
}

var _ surface.Surface = (*Widget)(nil)

// New returns an empty widget. pub may be nil.
func New(pub Publisher) *Widget {
	return &Widget{pub: pub}
}

func (w *Widget) ProgressWidth() int { return progressWidth }

func (w *Widget) AppendLine(line surface.Line) surface.LineID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	row := Row{ID: w.nextID, Text: line.Text, HTML: markup.ToHTML(line.Text), Cursor: line.Cursor}
	w.rows = append(w.rows, row)
	w.publish(Op{Op: OpAppend, ID: row.ID, HTML: row.HTML, Cursor: row.Cursor})
	return row.ID
}

func (w *Widget) UpdateLine(id surface.LineID, line surface.Line) {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.index(id)
	if idx < 0 {
		return
	}
	w.rows[idx].Text = line.Text
	w.rows[idx].HTML = markup.ToHTML(line.Text)
	w.rows[idx].Cursor = line.Cursor
	w.publish(Op{Op: OpUpdate, ID: id, HTML: w.rows[idx].HTML, Cursor: line.Cursor})
}

func (w *Widget) RemoveLine(id surface.LineID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.index(id)
	if idx < 0 {
		return
	}
	w.rows = append(w.rows[:idx], w.rows[idx+1:]...)
	w.publish(Op{Op: OpRemove, ID: id})
}

func (w *Widget) ScrollToBottom() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.publish(Op{Op: OpScroll})
}

func (w *Widget) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = nil
	w.publish(Op{Op: OpClear})
}

// Snapshot returns a copy of the current rows.
func (w *Widget) Snapshot() []Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Row(nil), w.rows...)
}

// Lines returns the visible text of each row with markup removed.
func (w *Widget) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.rows))
	for i, row := range w.rows {
		out[i] = markup.Strip(row.Text)
	}
	return out
}

func (w *Widget) index(id surface.LineID) int {
	for i := range w.rows {
		if w.rows[i].ID == id {
			return i
		}
	}
	return -1
}

// publish runs under w.mu so subscribers observe ops in apply order.
func (w *Widget) publish(op Op) {
	if w.pub != nil {
		w.pub.Publish(op)
	}
}
