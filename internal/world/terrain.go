package world

import "github.com/l1jgo/mapsim/internal/data"

// Terrain word layout.
const (
	flagFreeTrade   uint32 = 0x00020000
	flagSafe        uint32 = 0x00040000
	flagStall       uint32 = 0x00100000
	flagDrop        uint32 = 0x00400000
	flagRedNameDrop uint32 = 0x00800000
	flagWalkable    uint32 = 0x10000000

	heightMask   uint32 = 0xFFFF
	heightOffset        = 30
)

// TerrainFlags is the packed flag word of one cell.
type TerrainFlags uint32

func (f TerrainFlags) Walkable() bool  { return uint32(f)&flagWalkable != 0 }
func (f TerrainFlags) FreeTrade() bool { return uint32(f)&flagFreeTrade != 0 }
func (f TerrainFlags) Stall() bool     { return uint32(f)&flagStall != 0 }

// Safe is true for safe cells and for stall cells, which are always safe.
func (f TerrainFlags) Safe() bool {
	return uint32(f)&flagSafe != 0 || f.Stall()
}

// Drop permits ordinary item drops on the cell.
func (f TerrainFlags) Drop() bool { return uint32(f)&flagDrop != 0 }

// RedNameDrop permits drops only by red-named actors.
func (f TerrainFlags) RedNameDrop() bool { return uint32(f)&flagRedNameDrop != 0 }

// Height is the low 16 bits minus the fixed offset.
func (f TerrainFlags) Height() int {
	return int(uint32(f)&heightMask) - heightOffset
}

// Terrain is the immutable per-cell flag table of one map.
// Cells are stored x-major: words[x*height+y] with x, y relative to start.
type Terrain struct {
	start  Point
	width  int
	height int
	words  []uint32
}

// NewTerrain wraps decoded terrain data. The word slice is shared, not copied;
// it must not be modified afterwards.
func NewTerrain(d *data.TerrainData) *Terrain {
	return &Terrain{
		start:  Point{X: d.StartX, Y: d.StartY},
		width:  d.Width,
		height: d.Height,
		words:  d.Words,
	}
}

func (t *Terrain) Start() Point { return t.start }

// End is the exclusive upper corner.
func (t *Terrain) End() Point {
	return Point{X: t.start.X + t.width, Y: t.start.Y + t.height}
}

func (t *Terrain) Width() int  { return t.width }
func (t *Terrain) Height() int { return t.height }

// Valid reports whether p lies within [start, end) on both axes.
func (t *Terrain) Valid(p Point) bool {
	return p.X >= t.start.X && p.Y >= t.start.Y &&
		p.X < t.start.X+t.width && p.Y < t.start.Y+t.height
}

// At returns the flags of p; out-of-bounds points have no flags set.
func (t *Terrain) At(p Point) TerrainFlags {
	if !t.Valid(p) {
		return 0
	}
	return TerrainFlags(t.words[t.index(p)])
}

func (t *Terrain) index(p Point) int {
	return (p.X-t.start.X)*t.height + (p.Y - t.start.Y)
}
