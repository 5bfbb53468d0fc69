package event

import (
	"time"

	"github.com/google/uuid"
)

// Replica run outcomes.
const (
	OutcomeCleared   = "cleared"    // every wave spawned and every monster killed
	OutcomeGuardDied = "guard_died" // the escort guard died before the hold phase ended
	OutcomeAbandoned = "abandoned"  // all players left after the first wave
)

// ReplicaStarted fires when warmup begins on a replica instance.
type ReplicaStarted struct {
	RunID   uuid.UUID
	MapID   int
	RouteID int
	Players int
	At      time.Time
}

// ReplicaWaveStarted fires when the first monster of a wave spawns.
type ReplicaWaveStarted struct {
	RunID   uuid.UUID
	MapID   int
	RouteID int
	Wave    int // 1-based
	At      time.Time
}

// ReplicaClosed fires once teardown has evicted everything.
type ReplicaClosed struct {
	RunID      uuid.UUID
	MapID      int
	RouteID    int
	Outcome    string
	WavesTotal int
	WavesSeen  int
	StartedAt  time.Time
	ClosedAt   time.Time
}
