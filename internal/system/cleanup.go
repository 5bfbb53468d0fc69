package system

import (
	"go.uber.org/zap"

	coresys "github.com/l1jgo/mapsim/internal/core/system"
	"github.com/l1jgo/mapsim/internal/world"
)

// CleanupSystem drops replica instances that finished teardown this tick.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	maps *world.Manager
	log  *zap.Logger
}

func NewCleanupSystem(maps *world.Manager, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{maps: maps, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ coresys.Frame) {
	for _, m := range s.maps.Sweep() {
		st := m.Stats()
		s.log.Info("副本實例已移除",
			zap.Int("map", m.MapID()),
			zap.Int("route", m.RouteID()),
			zap.Int64("spawned", st.MonstersSpawned),
		)
	}
}
