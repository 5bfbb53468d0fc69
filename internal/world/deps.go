package world

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/l1jgo/mapsim/internal/core/event"
	"github.com/l1jgo/mapsim/internal/data"
	"github.com/l1jgo/mapsim/internal/locale"
)

// Clock is the time source. Process reads it once per call.
type Clock interface {
	Now() time.Time
}

// Rand returns uniform integers in [0, n). n is always positive.
type Rand interface {
	Intn(n int) int
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// lockedRand guards a math/rand source; placement runs on network goroutines too.
type lockedRand struct {
	mu deadlock.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe Rand. seed 0 seeds from the clock.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// between returns a value in [lo, hi), or lo when the range is empty.
func between(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo)
}

// Settings holds the runtime-mutable world switches consulted by CanDrop.
type Settings struct {
	siegeStage atomic.Int32
	siegeDrop  atomic.Bool
	siegeMaps  map[int]struct{} // read-only after construction
}

func NewSettings(stage int, dropDuringSiege bool, siegeMaps []int) *Settings {
	s := &Settings{siegeMaps: make(map[int]struct{}, len(siegeMaps))}
	s.siegeStage.Store(int32(stage))
	s.siegeDrop.Store(dropDuringSiege)
	for _, id := range siegeMaps {
		s.siegeMaps[id] = struct{}{}
	}
	return s
}

func (s *Settings) SiegeStage() int           { return int(s.siegeStage.Load()) }
func (s *Settings) SetSiegeStage(stage int)   { s.siegeStage.Store(int32(stage)) }
func (s *Settings) DropDuringSiege() bool     { return s.siegeDrop.Load() }
func (s *Settings) SetDropDuringSiege(v bool) { s.siegeDrop.Store(v) }

// SiegeGated reports whether drops on mapID follow the siege switch.
func (s *Settings) SiegeGated(mapID int) bool {
	_, ok := s.siegeMaps[mapID]
	return ok
}

// MonsterLookup resolves spawn templates by name.
type MonsterLookup interface {
	Get(name string) (*data.MonsterTemplate, bool)
}

// Announcer formats the replica broadcast texts.
type Announcer interface {
	Countdown(seconds int) string
	WaveStarted(wave int) string
	AllDefeated(closeIn int) string
	Closing() string
}

// MapLookup finds the primary instance of a map for respawn teleports.
type MapLookup interface {
	GetMap(mapID int) *Map
}

// ReplicaTimers paces the replica controller.
type ReplicaTimers struct {
	WarmupStep      time.Duration
	SpawnInterval   time.Duration
	WavePause       time.Duration
	ClosingDelay    time.Duration
	ClosingStep     time.Duration
	MonsterLifetime time.Duration
}

func DefaultReplicaTimers() ReplicaTimers {
	return ReplicaTimers{
		WarmupStep:      5 * time.Second,
		SpawnInterval:   2 * time.Second,
		WavePause:       60 * time.Second,
		ClosingDelay:    30 * time.Second,
		ClosingStep:     2 * time.Second,
		MonsterLifetime: 30 * time.Minute,
	}
}

// Deps are the collaborators a map is built with. Nil fields get defaults
// except Maps, Monsters and Bus.
type Deps struct {
	Clock      Clock
	Rand       Rand
	Settings   *Settings
	Monsters   MonsterLookup
	Texts      Announcer
	Maps       MapLookup
	Bus        *event.Bus
	Log        *zap.Logger
	Timers     ReplicaTimers
	SpawnPoint Point // replica monster spawn point when the script has none
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Rand == nil {
		d.Rand = NewRand(0)
	}
	if d.Settings == nil {
		d.Settings = NewSettings(0, false, nil)
	}
	if d.Texts == nil {
		d.Texts = locale.NewAnnouncer(0)
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Timers == (ReplicaTimers{}) {
		d.Timers = DefaultReplicaTimers()
	}
	return d
}
