package generator

import "sync"

// HistorySize is the number of passwords kept per session.
const HistorySize = 10

// History is a bounded, newest-first list of generated passwords. It lives
// in memory only.
type History struct {
	mu    sync.Mutex
	limit int
	items []string
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = HistorySize
	}
	return &History{limit: limit}
}

// Add puts pw at the front, evicting the oldest entry when full.
func (h *History) Add(pw string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append([]string{pw}, h.items...)
	if len(h.items) > h.limit {
		h.items = h.items[:h.limit]
	}
}

// List returns a copy, newest first.
func (h *History) List() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.items...)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}
