package assistant

import "sync"

// Pair is one user input and the assistant output shown for it.
type Pair struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Transcript is the ordered, in-memory conversation of one session.
type Transcript struct {
	mu    sync.RWMutex
	pairs []Pair
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(input, output string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairs = append(t.pairs, Pair{Input: input, Output: output})
}

// ReplaceLast swaps the newest pair, or appends when the transcript is empty.
func (t *Transcript) ReplaceLast(input, output string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pairs) == 0 {
		t.pairs = append(t.pairs, Pair{Input: input, Output: output})
		return
	}
	t.pairs[len(t.pairs)-1] = Pair{Input: input, Output: output}
}

// Pairs returns a copy.
func (t *Transcript) Pairs() []Pair {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Pair, len(t.pairs))
	copy(out, t.pairs)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pairs)
}
