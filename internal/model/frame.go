package model

// Frame is the state the scheduler exposes to front ends after every change.
type Frame struct {
	Seq      uint64     `json:"seq"`
	Entries  []LogEntry `json:"entries"`
	Pending  int        `json:"pending"`
	Running  bool       `json:"running"`
	Degraded bool       `json:"degraded"`
	Fetching bool       `json:"fetching"`
}

// AIStatus reports the live source indicator shown to users.
func (f Frame) AIStatus() string {
	if f.Degraded {
		return "offline-fallback"
	}
	return "online"
}

// After returns the entries appended after the entry with the given id.
// An empty or evicted id yields every entry in the frame.
func (f Frame) After(id string) []LogEntry {
	if id == "" {
		return f.Entries
	}
	for i := len(f.Entries) - 1; i >= 0; i-- {
		if f.Entries[i].ID == id {
			return f.Entries[i+1:]
		}
	}
	return f.Entries
}

// LastID returns the id of the newest entry, or "" for an empty frame.
func (f Frame) LastID() string {
	if len(f.Entries) == 0 {
		return ""
	}
	return f.Entries[len(f.Entries)-1].ID
}
