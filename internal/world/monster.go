package world

import (
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/l1jgo/mapsim/internal/data"
)

// monsterIDCounter generates unique monster object IDs.
// Starts at 200_000_000 to avoid collision with character IDs.
var monsterIDCounter atomic.Int32

func init() {
	monsterIDCounter.Store(200_000_000)
}

// NextMonsterID returns a unique object ID for a monster instance.
func NextMonsterID() int32 {
	return monsterIDCounter.Add(1)
}

// Monster is a spawned monster or guard. AI and combat live elsewhere;
// they drive it through MoveTo, Kill and Despawn.
type Monster struct {
	ID        int32
	Template  *data.MonsterTemplate
	ExpiresAt time.Time // zero = never expires

	m    *Map
	mu   deadlock.RWMutex
	pos  Point
	dead atomic.Bool
}

func (mon *Monster) ObjectID() int32 { return mon.ID }

func (mon *Monster) Category() Category {
	if mon.Template.Guard {
		return CategoryGuard
	}
	return CategoryMonster
}

func (mon *Monster) Position() Point {
	mon.mu.RLock()
	defer mon.mu.RUnlock()
	return mon.pos
}

// Blocking: living monsters occupy their cell unless the template is passable.
func (mon *Monster) Blocking() bool {
	return !mon.Template.Passable && !mon.Dead()
}

func (mon *Monster) Dead() bool { return mon.dead.Load() }

// Kill marks the monster dead; the corpse stays on the map until despawned.
func (mon *Monster) Kill() { mon.dead.Store(true) }

// MoveTo relocates the monster on its map.
func (mon *Monster) MoveTo(p Point) bool {
	mon.mu.Lock()
	defer mon.mu.Unlock()
	if !mon.m.Relocate(mon, p) {
		return false
	}
	mon.pos = p
	return true
}

// Despawn removes the monster from its map.
func (mon *Monster) Despawn() {
	mon.m.Leave(mon)
}

func (mon *Monster) expired(now time.Time) bool {
	return !mon.ExpiresAt.IsZero() && now.After(mon.ExpiresAt)
}

// SpawnMonster places a monster of the named template near at. A lifetime of
// 0 never expires. Unknown templates and unplaceable spawns return nil.
func (m *Map) SpawnMonster(name string, at Point, lifetime time.Duration, now time.Time) *Monster {
	if m.deps.Monsters == nil {
		return nil
	}
	tmpl, ok := m.deps.Monsters.Get(name)
	if !ok {
		m.log.Debug("spawn template missing", zap.String("monster", name))
		return nil
	}

	p := at
	if !m.GetRandomXY(DefaultPlacementAttempts, spawnJitter, &p) && !m.ValidPoint(p) {
		m.log.Debug("no spawn point", zap.String("monster", name), zap.Int("x", at.X), zap.Int("y", at.Y))
		return nil
	}

	mon := &Monster{ID: NextMonsterID(), Template: tmpl, m: m, pos: p}
	if lifetime > 0 {
		mon.ExpiresAt = now.Add(lifetime)
	}
	if !m.Enter(mon) {
		return nil
	}
	m.stats.spawned.Add(1)
	return mon
}
