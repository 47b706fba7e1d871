package db

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Cast is an archived recording.
type Cast struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Source        string    `json:"source,omitempty"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Duration      float64   `json:"duration"`
	IdleTimeLimit float64   `json:"idle_time_limit,omitempty"`
	EventCount    int       `json:"event_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CastEvent is one output chunk of a cast, ordered by Seq.
type CastEvent struct {
	Seq  int     `json:"seq"`
	Time float64 `json:"time"`
	Type string  `json:"type"`
	Data string  `json:"data"`
}

type CastFilter struct {
	Title string
	Limit int
}

func NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = nowUTC()
	}
	return ts.UTC().Format(time.RFC3339)
}

func parseTimestamp(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return ts, nil
}
