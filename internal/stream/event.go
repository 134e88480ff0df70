// Package stream provides the resumable token-stream plumbing: an
// in-process broadcaster feeding connected clients and a redis-backed
// context that lets a disconnected client re-attach to a generation.
package stream

import "encoding/json"

const (
	EventTextDelta = "text-delta"
	EventError     = "error"
	EventFinish    = "finish"
)

// Event is one incremental unit of a generation stream.
type Event struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

func (e Event) encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeEvent(raw string) (Event, error) {
	var ev Event
	err := json.Unmarshal([]byte(raw), &ev)
	return ev, err
}
