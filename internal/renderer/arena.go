package renderer

import (
	"context"
)

// Handle refers to an element of one Arena. Handles of a disposed arena
// resolve to nothing.
type Handle struct {
	Slot       int
	ShapeIndex int
}

// Arena owns the elements rendered for a single step. It is created by
// Render and disposed as a whole when the step is left.
type Arena struct {
	canvas   Canvas
	elems    []*Element
	byShape  map[int]int
	ctx      context.Context
	cancel   context.CancelFunc
	disposed bool
}

func newArena(canvas Canvas) *Arena {
	ctx, cancel := context.WithCancel(context.Background())
	return &Arena{
		canvas:  canvas,
		byShape: make(map[int]int),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (a *Arena) add(e *Element) Handle {
	slot := len(a.elems)
	a.elems = append(a.elems, e)
	a.byShape[e.ShapeIndex] = slot
	return Handle{Slot: slot, ShapeIndex: e.ShapeIndex}
}

// Element returns the element behind h, or nil once the arena is disposed.
func (a *Arena) Element(h Handle) *Element {
	if a == nil || a.disposed || h.Slot < 0 || h.Slot >= len(a.elems) {
		return nil
	}
	return a.elems[h.Slot]
}

// Lookup finds the handle rendered for the given shape index.
func (a *Arena) Lookup(shapeIndex int) (Handle, bool) {
	if a == nil || a.disposed {
		return Handle{}, false
	}
	slot, ok := a.byShape[shapeIndex]
	if !ok {
		return Handle{}, false
	}
	return Handle{Slot: slot, ShapeIndex: shapeIndex}, true
}

// Handles returns all handles in paint order.
func (a *Arena) Handles() []Handle {
	if a == nil || a.disposed {
		return nil
	}
	hs := make([]Handle, len(a.elems))
	for i, e := range a.elems {
		hs[i] = Handle{Slot: i, ShapeIndex: e.ShapeIndex}
	}
	return hs
}

func (a *Arena) Len() int {
	if a == nil || a.disposed {
		return 0
	}
	return len(a.elems)
}

// Dispose releases every element and cancels pending image loads.
// It is safe to call more than once.
func (a *Arena) Dispose() {
	if a == nil || a.disposed {
		return
	}
	a.disposed = true
	a.cancel()
	a.elems = nil
	a.byShape = nil
}

func (a *Arena) Disposed() bool {
	return a == nil || a.disposed
}

// SVG renders the current state of the arena as a standalone SVG document.
func (a *Arena) SVG() string {
	if a == nil {
		return ""
	}
	var elems []*Element
	if !a.disposed {
		elems = a.elems
	}
	return writeDocument(a.canvas, elems)
}
