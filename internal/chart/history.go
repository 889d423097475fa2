package chart

import "sync"

// Point is in data coordinates: X is an axis label from Figure.X, Y a price.
type Point struct {
	X string  `json:"x" validate:"required"`
	Y float64 `json:"y"`
}

// Stroke is one freehand line drawn over the chart.
type Stroke struct {
	Color  string  `json:"color" validate:"required,max=32"`
	Width  float64 `json:"width" validate:"gt=0,lte=20"`
	Points []Point `json:"points" validate:"required,min=1,max=5000,dive"`
}

type actionKind int

const (
	actionDraw actionKind = iota
	actionClear
)

type action struct {
	kind    actionKind
	stroke  Stroke
	cleared []Stroke
}

// History is a linear undo/redo log of annotation actions. Drawing after an
// undo discards the redo branch. Clear is an undoable action; Reset is not.
// When maxDepth > 0 the oldest actions fall off the undo stack, their effect
// stays on the chart.
type History struct {
	mu       sync.Mutex
	strokes  []Stroke
	undo     []action
	redo     []action
	maxDepth int
}

func NewHistory(maxDepth int) *History {
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &History{maxDepth: maxDepth}
}

func (h *History) Draw(s Stroke) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.Points = append([]Point(nil), s.Points...)
	h.strokes = append(h.strokes, s)
	h.push(action{kind: actionDraw, stroke: s})
}

// Undo reverts the most recent action. It reports false when there is nothing to undo.
func (h *History) Undo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) == 0 {
		return false
	}
	a := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	switch a.kind {
	case actionDraw:
		h.strokes = h.strokes[:len(h.strokes)-1]
	case actionClear:
		h.strokes = append([]Stroke(nil), a.cleared...)
	}
	h.redo = append(h.redo, a)
	return true
}

// Redo re-applies the most recently undone action.
func (h *History) Redo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return false
	}
	a := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	switch a.kind {
	case actionDraw:
		h.strokes = append(h.strokes, a.stroke)
	case actionClear:
		h.strokes = nil
	}
	h.undo = append(h.undo, a)
	h.trim()
	return true
}

// Clear removes every stroke as one undoable step. Clearing an empty chart is a no-op.
func (h *History) Clear() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.strokes) == 0 {
		return false
	}
	h.push(action{kind: actionClear, cleared: h.strokes})
	h.strokes = nil
	return true
}

// Reset wipes strokes and both stacks, used when the chart itself changes.
func (h *History) Reset() {
	h.mu.Lock()
	h.strokes, h.undo, h.redo = nil, nil, nil
	h.mu.Unlock()
}

// Strokes returns a copy of the visible strokes in drawing order.
func (h *History) Strokes() []Stroke {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Stroke{}, h.strokes...)
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

func (h *History) push(a action) {
	h.undo = append(h.undo, a)
	h.redo = nil
	h.trim()
}

func (h *History) trim() {
	if h.maxDepth > 0 && len(h.undo) > h.maxDepth {
		h.undo = append([]action(nil), h.undo[len(h.undo)-h.maxDepth:]...)
	}
}
