package dom

import "net/url"

// Entry is one session history entry. It stores nothing beyond the URL and
// an ID owners can key private state on.
type Entry struct {
	ID  uint64
	URL *url.URL
}

// History is a browser-style session history stack. Pushing while positioned
// before the end discards the forward entries.
type History struct {
	entries []*Entry
	index   int
	nextID  uint64
}

func newHistory(initial *url.URL) *History {
	h := &History{}
	h.entries = []*Entry{h.newEntry(initial)}
	return h
}

func (h *History) newEntry(u *url.URL) *Entry {
	h.nextID++
	return &Entry{ID: h.nextID, URL: cloneURL(u)}
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Index returns the position of the current entry.
func (h *History) Index() int { return h.index }

// Current returns the active entry.
func (h *History) Current() *Entry { return h.entries[h.index] }

// Entries returns a copy of the stack, oldest first.
func (h *History) Entries() []*Entry {
	return append([]*Entry(nil), h.entries...)
}

// Push appends an entry for u after the current one and activates it.
func (h *History) Push(u *url.URL) *Entry {
	e := h.newEntry(u)
	h.entries = append(h.entries[:h.index+1], e)
	h.index = len(h.entries) - 1
	return e
}

// Replace swaps the current entry for a new one for u.
func (h *History) Replace(u *url.URL) *Entry {
	e := h.newEntry(u)
	h.entries[h.index] = e
	return e
}

// Go moves delta entries and returns the new current entry, or nil when the
// move would leave the stack.
func (h *History) Go(delta int) *Entry {
	i := h.index + delta
	if delta == 0 || i < 0 || i >= len(h.entries) {
		return nil
	}
	h.index = i
	return h.entries[i]
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{}
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
