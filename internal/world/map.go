package world

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/l1jgo/mapsim/internal/data"
	"github.com/l1jgo/mapsim/internal/net/packet"
)

// Map is one running (map, route) instance: terrain, zones, stone mines and
// the object membership views. Maps that host a replica carry a controller.
type Map struct {
	info    data.MapInfo
	route   int
	terrain *Terrain
	grid    *Grid
	objects *Registry
	areas   *AreaSet
	mines   *MineField // nil when the map has no stone mines

	// memberMu serializes Enter/Leave/Relocate so the grid and the registry
	// change together.
	memberMu deadlock.Mutex
	where    map[Object]Point

	replica *ReplicaController

	deps  Deps
	log   *zap.Logger
	stats mapStats
}

type mapStats struct {
	spawned       atomic.Int64
	resurrections atomic.Int64
	itemDrops     atomic.Int64
	goldDrops     atomic.Int64
}

// Stats is a snapshot of a map's counters.
type Stats struct {
	MonstersSpawned      int64
	MonsterResurrections int64
	ItemDrops            int64
	GoldDrops            int64
}

// NewMap builds the instance for route of entry. Stone mines are seeded
// from deps.Rand when the map has a mine type.
func NewMap(entry *data.MapEntry, route int, deps Deps) (*Map, error) {
	td := entry.Terrain
	if td == nil || td.Width <= 0 || td.Height <= 0 || len(td.Words) != td.Width*td.Height {
		return nil, fmt.Errorf("map %d: bad terrain", entry.Info.MapID)
	}
	areas, err := NewAreaSet(entry.Info.Areas)
	if err != nil {
		return nil, fmt.Errorf("map %d: %w", entry.Info.MapID, err)
	}

	deps = deps.withDefaults()
	terrain := NewTerrain(td)
	m := &Map{
		info:    entry.Info,
		route:   route,
		terrain: terrain,
		grid:    NewGrid(terrain.Start(), terrain.Width(), terrain.Height()),
		objects: NewRegistry(),
		areas:   areas,
		where:   make(map[Object]Point),
		deps:    deps,
		log:     deps.Log.With(zap.Int("map", entry.Info.MapID), zap.Int("route", route)),
	}
	if entry.Info.MineType > 0 {
		m.mines = newMineField(mineTypeFor(entry.Info.MineType), terrain.Width(), terrain.Height(), deps.Rand, deps.Clock.Now())
	}
	return m, nil
}

// --- Metadata ---

func (m *Map) MapID() int            { return m.info.MapID }
func (m *Map) RouteID() int          { return m.route }
func (m *Map) Name() string          { return m.info.Name }
func (m *Map) MinLevel() int         { return m.info.MinLevel }
func (m *Map) NoReconnect() bool     { return m.info.NoReconnect }
func (m *Map) NoReconnectMapID() int { return m.info.NoReconnectMap }
func (m *Map) QuestMap() bool        { return m.info.QuestMap }
func (m *Map) StartPoint() Point     { return m.terrain.Start() }
func (m *Map) EndPoint() Point       { return m.terrain.End() }
func (m *Map) Width() int            { return m.terrain.Width() }
func (m *Map) Height() int           { return m.terrain.Height() }

func (m *Map) String() string {
	return fmt.Sprintf("%d:%s#%d", m.info.MapID, m.info.Name, m.route)
}

// Status is the crowd tier shown on the map list: 1 below 200 players,
// 2 below 500, 3 otherwise.
func (m *Map) Status() int {
	n := m.objects.PlayerCount()
	switch {
	case n < 200:
		return 1
	case n < 500:
		return 2
	default:
		return 3
	}
}

// --- Membership ---

// At returns the object set of the cell at p.
func (m *Map) At(p Point) *Cell {
	return m.grid.At(p)
}

// Enter places o at its current position in both the grid and the registry.
// Entering again moves it. Returns false for points outside the map.
func (m *Map) Enter(o Object) bool {
	p := o.Position()
	if !m.ValidPoint(p) {
		return false
	}
	m.memberMu.Lock()
	defer m.memberMu.Unlock()
	if old, ok := m.where[o]; ok {
		m.grid.At(old).remove(o)
	} else {
		m.objects.Add(o)
	}
	m.grid.At(p).add(o)
	m.where[o] = p
	return true
}

// Leave removes o from the grid and the registry.
func (m *Map) Leave(o Object) bool {
	m.memberMu.Lock()
	defer m.memberMu.Unlock()
	p, ok := m.where[o]
	if !ok {
		return false
	}
	m.grid.At(p).remove(o)
	m.objects.Remove(o)
	delete(m.where, o)
	return true
}

// Relocate moves a present object to another cell.
func (m *Map) Relocate(o Object, to Point) bool {
	if !m.ValidPoint(to) {
		return false
	}
	m.memberMu.Lock()
	defer m.memberMu.Unlock()
	from, ok := m.where[o]
	if !ok {
		return false
	}
	if from != to {
		m.grid.At(from).remove(o)
		m.grid.At(to).add(o)
		m.where[o] = to
	}
	return true
}

// Contains reports whether o is on the map.
func (m *Map) Contains(o Object) bool {
	m.memberMu.Lock()
	defer m.memberMu.Unlock()
	_, ok := m.where[o]
	return ok
}

// AddObject files o under its category without touching the grid.
// Callers that use it update cell membership themselves.
func (m *Map) AddObject(o Object) { m.objects.Add(o) }

// RemoveObject is the inverse of AddObject.
func (m *Map) RemoveObject(o Object) { m.objects.Remove(o) }

func (m *Map) Players() []Player { return m.objects.Players() }
func (m *Map) Pets() []Pet       { return m.objects.Pets() }
func (m *Map) Items() []Item     { return m.objects.Items() }
func (m *Map) PlayerCount() int  { return m.objects.PlayerCount() }

// AliveMonsters counts living hostile monsters; guards are excluded.
func (m *Map) AliveMonsters() int {
	return m.aliveMonstersExcept(nil)
}

// aliveMonstersExcept is AliveMonsters without skip, whatever its template says.
func (m *Map) aliveMonstersExcept(skip Object) int {
	n := 0
	for _, o := range m.objects.Monsters() {
		if o == skip {
			continue
		}
		if o.Category() == CategoryMonster && !o.Dead() {
			n++
		}
	}
	return n
}

// --- Terrain queries ---

func (m *Map) ValidPoint(p Point) bool { return m.terrain.Valid(p) }

func (m *Map) ValidTerrain(p Point) bool {
	return m.terrain.At(p).Walkable()
}

// IsBlocking: safe cells never block, however crowded.
func (m *Map) IsBlocking(p Point) bool {
	if m.IsSafeArea(p) {
		return false
	}
	return m.grid.At(p).BlockingCount() > 0
}

func (m *Map) BlockingCount(p Point) int {
	return m.grid.At(p).BlockingCount()
}

func (m *Map) CanMove(p Point) bool {
	return m.ValidTerrain(p) && !m.IsBlocking(p)
}

// GetTerrainHeight returns 0 outside the map.
func (m *Map) GetTerrainHeight(p Point) int {
	if !m.ValidPoint(p) {
		return 0
	}
	return m.terrain.At(p).Height()
}

// IsTerrainBlocked samples the line from start to end one cell at a time
// and reports whether any sample is not walkable.
func (m *Map) IsTerrainBlocked(start, end Point) bool {
	d := start.Distance(end)
	for i := 0; i <= d; i++ {
		if !m.ValidTerrain(FrontPosition(start, end, i)) {
			return true
		}
	}
	return false
}

func (m *Map) InFreeTradeArea(p Point) bool { return m.terrain.At(p).FreeTrade() }
func (m *Map) IsSafeArea(p Point) bool      { return m.terrain.At(p).Safe() }
func (m *Map) IsStallArea(p Point) bool     { return m.terrain.At(p).Stall() }

// CanDrop reports whether an item may drop at p. During a siege, gated maps
// refuse all drops unless the siege drop switch is on.
func (m *Map) CanDrop(p Point, redName bool) bool {
	s := m.deps.Settings
	if s.SiegeStage() >= 2 && s.SiegeGated(m.info.MapID) && !s.DropDuringSiege() {
		return false
	}
	f := m.terrain.At(p)
	return f.Drop() || (redName && f.RedNameDrop())
}

// --- Stone mines ---

// HasMines reports whether the map was created with stone mines.
func (m *Map) HasMines() bool { return m.mines != nil }

// GetMine returns a copy of the node at p.
func (m *Map) GetMine(p Point) (StoneMine, bool) {
	if m.mines == nil || !m.ValidPoint(p) {
		return StoneMine{}, false
	}
	start := m.terrain.Start()
	m.mines.mu.Lock()
	defer m.mines.mu.Unlock()
	n := m.mines.node(p.X-start.X, p.Y-start.Y)
	if n == nil {
		return StoneMine{}, false
	}
	return *n, true
}

// RefillMine refills the node at p unconditionally.
func (m *Map) RefillMine(p Point) bool {
	return m.withMine(p, func(n *StoneMine, now time.Time) bool {
		n.Refill(now)
		return true
	})
}

// HarvestMine takes one unit from the node at p. An empty node whose refill
// time has passed is refilled first. Count never drops below zero.
func (m *Map) HarvestMine(p Point) (MineType, bool) {
	var t MineType
	ok := m.withMine(p, func(n *StoneMine, now time.Time) bool {
		t = n.Type
		if n.Count <= 0 && now.After(n.RefillAt) {
			n.Refill(now)
		}
		if n.Count <= 0 {
			n.Count = 0
			return false
		}
		n.Count--
		return true
	})
	return t, ok
}

func (m *Map) withMine(p Point, fn func(n *StoneMine, now time.Time) bool) bool {
	if m.mines == nil || !m.ValidPoint(p) {
		return false
	}
	now := m.deps.Clock.Now()
	start := m.terrain.Start()
	m.mines.mu.Lock()
	defer m.mines.mu.Unlock()
	n := m.mines.node(p.X-start.X, p.Y-start.Y)
	if n == nil {
		return false
	}
	return fn(n, now)
}

// --- Statistics ---

func (m *Map) RecordResurrection() { m.stats.resurrections.Add(1) }

// RecordDrop counts items and gold dropped by monsters on this map.
func (m *Map) RecordDrop(items int, gold int64) {
	m.stats.itemDrops.Add(int64(items))
	m.stats.goldDrops.Add(gold)
}

func (m *Map) Stats() Stats {
	return Stats{
		MonstersSpawned:      m.stats.spawned.Load(),
		MonsterResurrections: m.stats.resurrections.Load(),
		ItemDrops:            m.stats.itemDrops.Load(),
		GoldDrops:            m.stats.goldDrops.Load(),
	}
}

// --- Tick ---

// BroadcastAnnouncement queues a system announcement to every player on the map.
func (m *Map) BroadcastAnnouncement(text string) {
	players := m.objects.Players()
	if len(players) == 0 {
		return
	}
	payload := packet.AnnouncementPayload(text)
	for _, p := range players {
		p.Enqueue(&packet.SystemMessage{Description: payload})
	}
}

// Process runs one simulation step using the clock's current time.
func (m *Map) Process() {
	m.ProcessAt(m.deps.Clock.Now())
}

// ProcessAt runs one simulation step. now is used for every comparison in
// the step. Must not run concurrently with itself for the same map.
func (m *Map) ProcessAt(now time.Time) {
	m.despawnExpired(now)
	if m.replica != nil {
		m.replica.process(now)
	}
}

// despawnExpired removes monsters whose lifetime has run out.
func (m *Map) despawnExpired(now time.Time) {
	for _, o := range m.objects.Monsters() {
		if mon, ok := o.(*Monster); ok && mon.expired(now) {
			mon.Despawn()
		}
	}
}

// Replica returns the instance controller, nil on ordinary maps.
func (m *Map) Replica() *ReplicaController { return m.replica }

// Closed reports whether the map's replica has been torn down.
func (m *Map) Closed() bool {
	return m.replica != nil && m.replica.Closed()
}
