package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick.
type Runner struct {
	systems []System
	sorted  bool
	seq     uint64
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs one full frame. now must come from the server clock, read once.
func (r *Runner) Tick(now time.Time, dt time.Duration) {
	r.ensureSorted()
	r.seq++
	f := Frame{Now: now, Delta: dt, Seq: r.seq}
	for _, s := range r.systems {
		s.Update(f)
	}
}

// TickPhase 只執行指定 Phase 的 System（測試與關閉流程使用）。
func (r *Runner) TickPhase(phase Phase, now time.Time) {
	r.ensureSorted()
	f := Frame{Now: now, Seq: r.seq}
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(f)
		}
	}
}

// Len returns the number of registered systems.
func (r *Runner) Len() int {
	return len(r.systems)
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
