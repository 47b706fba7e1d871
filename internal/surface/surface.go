package surface

// LineID is a stable handle for a line. IDs are never reused by a surface,
// so removing one line does not invalidate the others.
type LineID int

// Line is the content of one rendered row.
type Line struct {
	Text   string `json:"text"`
	Cursor bool   `json:"cursor,omitempty"`
}

// Surface is the capability set the player needs from a host.
type Surface interface {
	AppendLine(line Line) LineID
	UpdateLine(id LineID, line Line)
	RemoveLine(id LineID)
	ScrollToBottom()
	Clear()
}

// ProgressWidther is implemented by surfaces that want a specific bar width.
type ProgressWidther interface {
	ProgressWidth() int
}

const DefaultProgressWidth = 30

// ProgressWidth returns the bar width s prefers, or DefaultProgressWidth.
func ProgressWidth(s Surface) int {
	if pw, ok := s.(ProgressWidther); ok && pw.ProgressWidth() > 0 {
		return pw.ProgressWidth()
	}
	return DefaultProgressWidth
}
