package system

import (
	coresys "github.com/l1jgo/mapsim/internal/core/system"
	"github.com/l1jgo/mapsim/internal/world"
)

// MapSystem steps every running map instance once per tick with the frame's
// time. Phase 2 (Update).
type MapSystem struct {
	maps *world.Manager
}

func NewMapSystem(maps *world.Manager) *MapSystem {
	return &MapSystem{maps: maps}
}

func (s *MapSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MapSystem) Update(f coresys.Frame) {
	s.maps.ProcessAll(f.Now)
}
