package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// AreaInfo is one named circular zone declared for a map.
type AreaInfo struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"` // resurrection, red_name, teleport, demon_tower_1..9, siege_*, random
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Radius int    `yaml:"radius"`
}

// MapInfo holds metadata for a single map, loaded from map_list.yaml.
type MapInfo struct {
	MapID          int        `yaml:"map_id"`
	Name           string     `yaml:"name"`
	MinLevel       int        `yaml:"min_level"`
	MineType       int        `yaml:"mine_type"` // 0 = no stone mines, 1/2/3 = mine variant
	Routes         int        `yaml:"routes"`    // concurrently running copies opened at boot
	NoReconnect    bool       `yaml:"no_reconnect"`
	NoReconnectMap int        `yaml:"no_reconnect_map"`
	QuestMap       bool       `yaml:"quest_map"`
	Replica        bool       `yaml:"replica"` // opened on demand, hosts a replica script
	Areas          []AreaInfo `yaml:"areas"`
}

// MapEntry is the metadata plus terrain of one map.
type MapEntry struct {
	Info    MapInfo
	Terrain *TerrainData
}

// MapDataTable provides map metadata and terrain lookups.
type MapDataTable struct {
	maps map[int]*MapEntry
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// LoadMapData loads map metadata from YAML and terrain from compressed files.
// yamlPath: path to map_list.yaml
// terrainDir: directory containing {mapid}.terrain.zst files
func LoadMapData(yamlPath, terrainDir string, log *zap.Logger) (*MapDataTable, error) {
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", yamlPath, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}

	table := &MapDataTable{
		maps: make(map[int]*MapEntry, len(file.Maps)),
	}

	for _, info := range file.Maps {
		if info.Routes <= 0 {
			info.Routes = 1
		}
		for _, a := range info.Areas {
			if a.Radius < 0 {
				return nil, fmt.Errorf("map %d area %q: negative radius", info.MapID, a.Name)
			}
		}

		path := filepath.Join(terrainDir, strconv.Itoa(info.MapID)+TerrainExt)
		terrain, err := ReadTerrainFile(path)
		if err != nil {
			// Missing terrain is non-fatal: the map simply is not hosted.
			log.Warn("地圖地形載入失敗，略過", zap.Int("map", info.MapID), zap.Error(err))
			continue
		}

		table.maps[info.MapID] = &MapEntry{Info: info, Terrain: terrain}
	}

	return table, nil
}

// NewMapDataTable builds a table from already-loaded entries (tests, tools).
func NewMapDataTable(entries ...*MapEntry) *MapDataTable {
	t := &MapDataTable{maps: make(map[int]*MapEntry, len(entries))}
	for _, e := range entries {
		t.maps[e.Info.MapID] = e
	}
	return t
}

// Count returns the number of maps loaded with terrain.
func (t *MapDataTable) Count() int {
	return len(t.maps)
}

// Get returns the entry for a map, or nil if not found.
func (t *MapDataTable) Get(mapID int) *MapEntry {
	return t.maps[mapID]
}

// GetInfo returns metadata for a map, or nil if not found.
func (t *MapDataTable) GetInfo(mapID int) *MapInfo {
	e := t.maps[mapID]
	if e == nil {
		return nil
	}
	return &e.Info
}

// Entries returns every loaded map ordered by map ID.
func (t *MapDataTable) Entries() []*MapEntry {
	out := make([]*MapEntry, 0, len(t.maps))
	for _, e := range t.maps {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info.MapID < out[j].Info.MapID })
	return out
}
