package core

import "sync"

// Transcript is the ordered conversational history a model-backed node
// accumulates across tool-use rounds: user input, assistant turns, tool
// results. It is safe for concurrent access; Contents returns a copy, so
// callers cannot mutate internal history.
type Transcript struct {
	mu       sync.RWMutex
	contents []Content
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds one or more entries to the history in order.
func (t *Transcript) Append(contents ...Content) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.contents = append(t.contents, contents...)
}

// Contents returns a copy of the full history.
func (t *Transcript) Contents() []Content {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Content, len(t.contents))
	copy(out, t.contents)
	return out
}

// Len returns the number of history entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.contents)
}

// Last returns the most recent entry, or false when the transcript is empty.
func (t *Transcript) Last() (Content, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.contents) == 0 {
		return Content{}, false
	}
	return t.contents[len(t.contents)-1], true
}

// Clone returns an independent copy of the transcript.
func (t *Transcript) Clone() *Transcript {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c := &Transcript{contents: make([]Content, len(t.contents))}
	copy(c.contents, t.contents)
	return c
}
