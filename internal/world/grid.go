package world

import (
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	"github.com/zyedidia/generic/mapset"
)

// Cell is the set of objects standing on one map cell.
type Cell struct {
	mu   deadlock.RWMutex
	objs mapset.Set[Object]
}

func newCell() *Cell {
	return &Cell{objs: mapset.New[Object]()}
}

func (c *Cell) add(o Object) {
	c.mu.Lock()
	c.objs.Put(o)
	c.mu.Unlock()
}

func (c *Cell) remove(o Object) {
	c.mu.Lock()
	c.objs.Remove(o)
	c.mu.Unlock()
}

// Has reports whether o is in the cell.
func (c *Cell) Has(o Object) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.objs.Has(o)
}

// Len returns the number of objects in the cell.
func (c *Cell) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.objs.Size()
}

// Objects returns a snapshot of the cell's members.
func (c *Cell) Objects() []Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Object, 0, c.objs.Size())
	c.objs.Each(func(o Object) {
		out = append(out, o)
	})
	return out
}

// BlockingCount counts members whose Blocking flag is set.
func (c *Cell) BlockingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	c.objs.Each(func(o Object) {
		if o.Blocking() {
			n++
		}
	})
	return n
}

// Grid maps cells to their object sets. Cells are created on first access
// and never removed.
type Grid struct {
	start  Point
	width  int
	height int
	cells  []atomic.Pointer[Cell]
}

func NewGrid(start Point, width, height int) *Grid {
	return &Grid{
		start:  start,
		width:  width,
		height: height,
		cells:  make([]atomic.Pointer[Cell], width*height),
	}
}

func (g *Grid) valid(p Point) bool {
	return p.X >= g.start.X && p.Y >= g.start.Y &&
		p.X < g.start.X+g.width && p.Y < g.start.Y+g.height
}

// At returns the cell of p, creating it on first access. Out-of-bounds
// points get a fresh empty cell that is never stored.
func (g *Grid) At(p Point) *Cell {
	if !g.valid(p) {
		return newCell()
	}
	slot := &g.cells[(p.X-g.start.X)*g.height+(p.Y-g.start.Y)]
	if c := slot.Load(); c != nil {
		return c
	}
	// 競爭時以先寫入者為準
	c := newCell()
	if slot.CompareAndSwap(nil, c) {
		return c
	}
	return slot.Load()
}
