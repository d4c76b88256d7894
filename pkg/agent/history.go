package agent

import "github.com/neuradynamics/neurarag/internal/models"

// History is a bounded FIFO of completed (question, answer) turns. Capacity
// is fixed at construction; the oldest turn is evicted on overflow.
type History struct {
	capacity int
	turns    []models.Turn
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity}
}

func (h *History) Add(turn models.Turn) {
	h.turns = append(h.turns, turn)
	if len(h.turns) > h.capacity {
		h.turns = h.turns[len(h.turns)-h.capacity:]
	}
}

// Turns returns the retained turns, oldest first.
func (h *History) Turns() []models.Turn {
	out := make([]models.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int { return len(h.turns) }
