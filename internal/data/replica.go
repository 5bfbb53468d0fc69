package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// MaxReplicaWaves keeps wave stages (6..5+waves) clear of the closing (100)
// and teardown (110) stage numbers.
const MaxReplicaWaves = 93

// SpawnInfo is one ordered entry of a wave: emit Count monsters of Monster.
type SpawnInfo struct {
	Monster string `yaml:"monster"`
	Count   int    `yaml:"count"`
}

// WaveInfo is one scripted monster wave.
type WaveInfo struct {
	Spawns []SpawnInfo `yaml:"spawns"`
}

// ReplicaScript describes the staged encounter hosted by one map identity.
type ReplicaScript struct {
	MapID  int        `yaml:"map_id"`
	Guard  string     `yaml:"guard"` // monster template of the escort guard; empty = no guard
	GuardX int        `yaml:"guard_x"`
	GuardY int        `yaml:"guard_y"`
	SpawnX int        `yaml:"spawn_x"` // 0 = use [replica] spawn point from config
	SpawnY int        `yaml:"spawn_y"`
	Waves  []WaveInfo `yaml:"waves"`
}

type replicaListFile struct {
	Replicas []ReplicaScript `yaml:"replicas"`
}

// ReplicaTable holds replica scripts indexed by map ID.
type ReplicaTable struct {
	scripts map[int]*ReplicaScript
}

// LoadReplicaTable loads replica_list.yaml.
func LoadReplicaTable(path string) (*ReplicaTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replica_list: %w", err)
	}
	var f replicaListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse replica_list: %w", err)
	}
	t := &ReplicaTable{scripts: make(map[int]*ReplicaScript, len(f.Replicas))}
	for i := range f.Replicas {
		s := &f.Replicas[i]
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("parse replica_list: %w", err)
		}
		t.scripts[s.MapID] = s
	}
	return t, nil
}

// Validate rejects scripts the stage numbering cannot express.
func (s *ReplicaScript) Validate() error {
	if len(s.Waves) > MaxReplicaWaves {
		return fmt.Errorf("replica map %d: %d waves exceeds %d", s.MapID, len(s.Waves), MaxReplicaWaves)
	}
	for wi, w := range s.Waves {
		for si, sp := range w.Spawns {
			if sp.Monster == "" {
				return fmt.Errorf("replica map %d wave %d spawn %d: no monster", s.MapID, wi+1, si+1)
			}
			if sp.Count < 0 {
				return fmt.Errorf("replica map %d wave %d spawn %d: negative count", s.MapID, wi+1, si+1)
			}
		}
	}
	return nil
}

// NewReplicaTable builds a table from scripts (tests, tools).
func NewReplicaTable(scripts ...ReplicaScript) *ReplicaTable {
	t := &ReplicaTable{scripts: make(map[int]*ReplicaScript, len(scripts))}
	for i := range scripts {
		s := scripts[i]
		t.scripts[s.MapID] = &s
	}
	return t
}

// Get returns the script for a map, or nil if the map hosts no replica.
func (t *ReplicaTable) Get(mapID int) *ReplicaScript {
	return t.scripts[mapID]
}

// Count returns the number of scripts loaded.
func (t *ReplicaTable) Count() int {
	return len(t.scripts)
}

// MapIDs returns the map IDs that host a replica, ascending.
func (t *ReplicaTable) MapIDs() []int {
	ids := make([]int, 0, len(t.scripts))
	for id := range t.scripts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
