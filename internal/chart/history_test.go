package chart

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stroke(width float64) Stroke {
	return Stroke{Color: "black", Width: width, Points: []Point{{X: "2024-01-02", Y: width}}}
}

func widths(ss []Stroke) []float64 {
	out := make([]float64, len(ss))
	for i, s := range ss {
		out[i] = s.Width
	}
	return out
}

func TestHistory_UndoRedo(t *testing.T) {
	h := NewHistory(0)
	h.Draw(stroke(1))
	h.Draw(stroke(2))
	h.Draw(stroke(3))
	assert.Equal(t, []float64{1, 2, 3}, widths(h.Strokes()))

	require.True(t, h.Undo())
	assert.Equal(t, []float64{1, 2}, widths(h.Strokes()))
	require.True(t, h.Redo())
	assert.Equal(t, []float64{1, 2, 3}, widths(h.Strokes()))
	assert.False(t, h.Redo())
}

func TestHistory_DrawDiscardsRedoBranch(t *testing.T) {
	h := NewHistory(0)
	h.Draw(stroke(1))
	h.Draw(stroke(2))
	require.True(t, h.Undo())
	h.Draw(stroke(9))
	assert.False(t, h.CanRedo())
	assert.False(t, h.Redo())
	assert.Equal(t, []float64{1, 9}, widths(h.Strokes()))
}

func TestHistory_ClearIsUndoable(t *testing.T) {
	h := NewHistory(0)
	h.Draw(stroke(1))
	h.Draw(stroke(2))
	require.True(t, h.Clear())
	assert.Empty(t, h.Strokes())
	assert.False(t, h.Clear(), "clearing an empty chart does nothing")

	require.True(t, h.Undo())
	assert.Equal(t, []float64{1, 2}, widths(h.Strokes()))
	require.True(t, h.Redo())
	assert.Empty(t, h.Strokes())
}

func TestHistory_Reset(t *testing.T) {
	h := NewHistory(0)
	h.Draw(stroke(1))
	h.Undo()
	h.Reset()
	assert.Empty(t, h.Strokes())
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestHistory_DepthCap(t *testing.T) {
	h := NewHistory(2)
	for i := 1; i <= 4; i++ {
		h.Draw(stroke(float64(i)))
	}
	assert.True(t, h.Undo())
	assert.True(t, h.Undo())
	assert.False(t, h.Undo())
	assert.Equal(t, []float64{1, 2}, widths(h.Strokes()))
}

func TestHistory_EmptyUndo(t *testing.T) {
	h := NewHistory(0)
	assert.False(t, h.Undo())
	assert.False(t, h.Redo())
	assert.NotNil(t, h.Strokes())
}

// historyModel replays the same operations as snapshots of the whole stroke list.
type historyModel struct {
	cur          []float64
	past, future [][]float64
}

func (m *historyModel) apply(op int, w float64) {
	switch op {
	case 0:
		m.past = append(m.past, m.cur)
		m.cur = append(append([]float64{}, m.cur...), w)
		m.future = nil
	case 1:
		if len(m.past) > 0 {
			m.future = append(m.future, m.cur)
			m.cur = m.past[len(m.past)-1]
			m.past = m.past[:len(m.past)-1]
		}
	case 2:
		if len(m.future) > 0 {
			m.past = append(m.past, m.cur)
			m.cur = m.future[len(m.future)-1]
			m.future = m.future[:len(m.future)-1]
		}
	case 3:
		if len(m.cur) > 0 {
			m.past = append(m.past, m.cur)
			m.cur = []float64{}
			m.future = nil
		}
	}
}

func TestProperty_HistoryMatchesSnapshotModel(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("draw/undo/redo/clear behave like a linear snapshot history", prop.ForAll(
		func(ops []int) bool {
			h := NewHistory(0)
			m := &historyModel{cur: []float64{}}
			for i, op := range ops {
				w := float64(i + 1)
				switch op {
				case 0:
					h.Draw(stroke(w))
				case 1:
					h.Undo()
				case 2:
					h.Redo()
				case 3:
					h.Clear()
				}
				m.apply(op, w)
				got := widths(h.Strokes())
				if len(got) != len(m.cur) {
					return false
				}
				for j := range got {
					if got[j] != m.cur[j] {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.Property("undo after a draw removes exactly that stroke, redo restores it", prop.ForAll(
		func(n int) bool {
			h := NewHistory(0)
			for i := 1; i <= n; i++ {
				h.Draw(stroke(float64(i)))
			}
			before := widths(h.Strokes())
			if !h.Undo() {
				return false
			}
			after := widths(h.Strokes())
			if len(after) != n-1 || (n > 1 && after[len(after)-1] != float64(n-1)) {
				return false
			}
			if !h.Redo() {
				return false
			}
			restored := widths(h.Strokes())
			if len(restored) != len(before) {
				return false
			}
			return restored[len(restored)-1] == float64(n)
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
