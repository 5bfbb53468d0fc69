package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: membership changes queued by network handlers
	PhasePreUpdate               // 1: dispatch last tick's events
	PhaseUpdate                  // 2: map simulation (replica controllers)
	PhasePostUpdate              // 3: mine refills, statistics
	PhaseOutput                  // 4: flush announcements
	PhasePersist                 // 5: replica run log
	PhaseCleanup                 // 6: drop closed instances
)

// Frame is the per-tick context handed to every system. Now is read once
// per tick so every comparison within the tick sees the same instant.
type Frame struct {
	Now   time.Time
	Delta time.Duration
	Seq   uint64
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(f Frame)
}
