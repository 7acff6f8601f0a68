package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/goccy/go-json"

	"github.com/pesio-ai/be-relocation-cases/internal/model"
)

// ReviewStep is the final wizard step. It has no fields of its own and is
// reachable once the four sections are done.
const ReviewStep = 5

// Completion is the derived progress of a draft.
type Completion struct {
	DoneFlags      [4]bool `json:"doneFlags"`
	MaxUnlocked    int     `json:"maxUnlocked"`
	CompletedSteps []int   `json:"completedSteps"`
	Completeness   int     `json:"completeness"`
}

// FirstIncompleteStep returns the lowest step that is not done, or
// ReviewStep when all four are.
func (c Completion) FirstIncompleteStep() int {
	for i, done := range c.DoneFlags {
		if !done {
			return i + 1
		}
	}
	return ReviewStep
}

// ReadyForReview reports whether the review step is unlocked.
func (c Completion) ReadyForReview() bool {
	return c.MaxUnlocked == ReviewStep
}

// ComputeCompletion evaluates the steps as a strict chain: a step is done
// only when its own fields are present and every earlier step is done.
func ComputeCompletion(d model.Draft) Completion {
	c := Completion{CompletedSteps: []int{}}
	prev := true
	for step := 1; step <= len(Sections); step++ {
		done := prev && len(missingForStep(d, step)) == 0
		c.DoneFlags[step-1] = done
		if done {
			c.CompletedSteps = append(c.CompletedSteps, step)
		}
		prev = done
	}

	c.MaxUnlocked = 1 + len(c.CompletedSteps)
	if c.MaxUnlocked > ReviewStep {
		c.MaxUnlocked = ReviewStep
	}
	c.Completeness = len(c.CompletedSteps) * 100 / len(Sections)
	return c
}

// ContentHash returns a stable hash of a draft's content.
func ContentHash(d model.Draft) string {
	// Struct field order is fixed, so the encoding is deterministic.
	b, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Memo caches ComputeCompletion results by draft content hash.
type Memo struct {
	mu      sync.Mutex
	entries map[string]Completion
	limit   int
}

// NewMemo returns a cache holding at most limit entries; when full it is
// reset rather than evicted entry by entry.
func NewMemo(limit int) *Memo {
	if limit <= 0 {
		limit = 1024
	}
	return &Memo{entries: make(map[string]Completion), limit: limit}
}

// Completion returns the cached result for d, computing it on a miss.
func (m *Memo) Completion(d model.Draft) Completion {
	key := ContentHash(d)
	if key == "" {
		return ComputeCompletion(d)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.entries[key]; ok {
		return c.clone()
	}
	c := ComputeCompletion(d)
	if len(m.entries) >= m.limit {
		m.entries = make(map[string]Completion)
	}
	m.entries[key] = c
	return c.clone()
}

func (c Completion) clone() Completion {
	c.CompletedSteps = append([]int{}, c.CompletedSteps...)
	return c
}

// Len reports the number of cached entries.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
