package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/mapsim/internal/core/event"
	coresys "github.com/l1jgo/mapsim/internal/core/system"
	"github.com/l1jgo/mapsim/internal/persist"
)

// maxPendingRuns bounds the retry buffer while the database is unreachable.
const maxPendingRuns = 1024

// RunWriter stores finished replica runs.
type RunWriter interface {
	WriteRuns(ctx context.Context, runs []persist.ReplicaRun) error
}

// ReplicaLogSystem collects ReplicaClosed events and writes them in one
// batch per tick. Failed batches are retried next tick. Phase 5 (Persist).
type ReplicaLogSystem struct {
	repo    RunWriter // nil = log only
	pending []persist.ReplicaRun
	log     *zap.Logger
}

func NewReplicaLogSystem(bus *event.Bus, repo RunWriter, log *zap.Logger) *ReplicaLogSystem {
	s := &ReplicaLogSystem{repo: repo, log: log}
	event.Subscribe(bus, s.onClosed)
	return s
}

func (s *ReplicaLogSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *ReplicaLogSystem) onClosed(ev event.ReplicaClosed) {
	run := persist.ReplicaRun{
		RunID:      ev.RunID,
		MapID:      ev.MapID,
		RouteID:    ev.RouteID,
		Outcome:    ev.Outcome,
		WavesTotal: ev.WavesTotal,
		WavesSeen:  ev.WavesSeen,
		StartedAt:  ev.StartedAt,
		ClosedAt:   ev.ClosedAt,
	}
	s.log.Info("副本紀錄",
		zap.Stringer("run", run.RunID),
		zap.Int("map", run.MapID),
		zap.Int("route", run.RouteID),
		zap.String("outcome", run.Outcome),
		zap.Int("waves", run.WavesSeen),
		zap.Duration("duration", run.Duration()),
	)
	if s.repo == nil {
		return
	}
	if len(s.pending) >= maxPendingRuns {
		s.log.Warn("副本紀錄緩衝已滿，丟棄最舊紀錄")
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, run)
}

func (s *ReplicaLogSystem) Update(_ coresys.Frame) {
	s.Flush()
}

// Flush writes every pending run. Also called on shutdown.
func (s *ReplicaLogSystem) Flush() {
	if s.repo == nil || len(s.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.WriteRuns(ctx, s.pending); err != nil {
		s.log.Error("副本紀錄寫入失敗", zap.Int("runs", len(s.pending)), zap.Error(err))
		return
	}
	s.pending = s.pending[:0]
}

// Pending returns how many runs wait to be written.
func (s *ReplicaLogSystem) Pending() int {
	return len(s.pending)
}
