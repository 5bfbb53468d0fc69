package world

import (
	"fmt"
	"sort"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/l1jgo/mapsim/internal/data"
)

type routeKey struct {
	mapID int
	route int
}

// Manager owns every running map instance, keyed by (map, route).
// Ordinary maps open all their routes at construction; replica maps open
// on demand and are dropped once closed.
type Manager struct {
	mu       deadlock.RWMutex
	maps     map[routeKey]*Map
	table    *data.MapDataTable
	replicas *data.ReplicaTable
	deps     Deps
	log      *zap.Logger
}

// NewManager opens every route of every non-replica map in table.
func NewManager(table *data.MapDataTable, replicas *data.ReplicaTable, deps Deps) (*Manager, error) {
	deps = deps.withDefaults()
	mgr := &Manager{
		maps:     make(map[routeKey]*Map),
		table:    table,
		replicas: replicas,
		log:      deps.Log,
	}
	deps.Maps = mgr
	mgr.deps = deps

	for _, e := range table.Entries() {
		if e.Info.Replica {
			continue
		}
		for r := 1; r <= e.Info.Routes; r++ {
			m, err := NewMap(e, r, deps)
			if err != nil {
				return nil, err
			}
			mgr.maps[routeKey{e.Info.MapID, r}] = m
		}
	}
	return mgr, nil
}

// GetMap returns the lowest open route of mapID, nil if none is running.
func (mgr *Manager) GetMap(mapID int) *Map {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	var best *Map
	for k, m := range mgr.maps {
		if k.mapID == mapID && (best == nil || k.route < best.route) {
			best = m
		}
	}
	return best
}

// GetRoute returns a specific instance.
func (mgr *Manager) GetRoute(mapID, route int) *Map {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return mgr.maps[routeKey{mapID, route}]
}

// OpenReplica opens a new instance of a replica map on the first free route.
func (mgr *Manager) OpenReplica(mapID int) (*Map, error) {
	e := mgr.table.Get(mapID)
	if e == nil {
		return nil, fmt.Errorf("map %d not loaded", mapID)
	}
	if !e.Info.Replica {
		return nil, fmt.Errorf("map %d is not a replica map", mapID)
	}
	var script *data.ReplicaScript
	if mgr.replicas != nil {
		script = mgr.replicas.Get(mapID)
	}
	if script == nil {
		return nil, fmt.Errorf("map %d has no replica script", mapID)
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	route := 1
	for {
		if _, used := mgr.maps[routeKey{mapID, route}]; !used {
			break
		}
		route++
	}

	m, err := NewMap(e, route, mgr.deps)
	if err != nil {
		return nil, err
	}
	if err := m.AttachReplica(script); err != nil {
		return nil, fmt.Errorf("map %d: %w", mapID, err)
	}
	mgr.maps[routeKey{mapID, route}] = m
	mgr.log.Info("副本開啟", zap.Int("map", mapID), zap.Int("route", route))
	return m, nil
}

// Maps returns every running instance ordered by map then route.
func (mgr *Manager) Maps() []*Map {
	mgr.mu.RLock()
	out := make([]*Map, 0, len(mgr.maps))
	for _, m := range mgr.maps {
		out = append(out, m)
	}
	mgr.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].MapID() != out[j].MapID() {
			return out[i].MapID() < out[j].MapID()
		}
		return out[i].RouteID() < out[j].RouteID()
	})
	return out
}

// Count returns the number of running instances.
func (mgr *Manager) Count() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return len(mgr.maps)
}

// ProcessAll steps every instance with the same tick time.
func (mgr *Manager) ProcessAll(now time.Time) {
	for _, m := range mgr.Maps() {
		m.ProcessAt(now)
	}
}

// Sweep drops closed replica instances and returns them.
func (mgr *Manager) Sweep() []*Map {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	var closed []*Map
	for k, m := range mgr.maps {
		if m.Closed() {
			delete(mgr.maps, k)
			closed = append(closed, m)
		}
	}
	return closed
}
