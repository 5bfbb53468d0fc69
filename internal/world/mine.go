package world

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// MineType is the stone-mine variant of a map.
type MineType uint8

const (
	Mine MineType = iota
	Mine2
	Mine3
)

// MineRefillDelay is how long a refilled node waits before the next refill.
const MineRefillDelay = 10 * time.Minute

// mineTypeFor maps the map_list mine_type selector to a variant.
func mineTypeFor(selector int) MineType {
	switch selector {
	case 2:
		return Mine2
	case 3:
		return Mine3
	default:
		return Mine
	}
}

// StoneMine is one harvestable node.
type StoneMine struct {
	Type      MineType
	Count     int
	FillCount int
	RefillAt  time.Time
}

// Refill restores Count to FillCount and schedules the next refill.
func (s *StoneMine) Refill(now time.Time) {
	s.Count = s.FillCount
	s.RefillAt = now.Add(MineRefillDelay)
}

// MineField holds a node for every cell whose local x and y are both even.
type MineField struct {
	mu     deadlock.Mutex
	width  int // nodes per column
	height int // nodes per row
	nodes  []StoneMine
}

func newMineField(t MineType, mapWidth, mapHeight int, r Rand, now time.Time) *MineField {
	w := (mapWidth + 1) / 2
	h := (mapHeight + 1) / 2
	f := &MineField{width: w, height: h, nodes: make([]StoneMine, w*h)}
	for i := range f.nodes {
		f.nodes[i] = StoneMine{
			Type:      t,
			Count:     r.Intn(200),
			FillCount: r.Intn(80),
			RefillAt:  now,
		}
	}
	return f
}

// node returns the node at local (x, y), or nil off the checkerboard.
// Caller holds mu.
func (f *MineField) node(x, y int) *StoneMine {
	if x < 0 || y < 0 || x%2 != 0 || y%2 != 0 {
		return nil
	}
	nx, ny := x/2, y/2
	if nx >= f.width || ny >= f.height {
		return nil
	}
	return &f.nodes[nx*f.height+ny]
}

// Len returns the number of nodes.
func (f *MineField) Len() int {
	return len(f.nodes)
}
