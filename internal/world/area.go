package world

import (
	"fmt"
	"strings"

	"github.com/l1jgo/mapsim/internal/data"
)

// AreaType tags a map zone.
type AreaType int

const (
	AreaUnknown AreaType = iota
	AreaResurrection
	AreaRedName
	AreaTeleport
	AreaDemonTower1
	AreaDemonTower2
	AreaDemonTower3
	AreaDemonTower4
	AreaDemonTower5
	AreaDemonTower6
	AreaDemonTower7
	AreaDemonTower8
	AreaDemonTower9
	AreaSiegeShortcut // attackers' shortcut into the castle
	AreaSiegeLeft     // left gate teleport
	AreaSiegeRight    // right gate teleport
	AreaSiegePalace   // palace teleport
	AreaRandom
)

var areaNames = map[string]AreaType{
	"unknown":        AreaUnknown,
	"resurrection":   AreaResurrection,
	"red_name":       AreaRedName,
	"teleport":       AreaTeleport,
	"siege_shortcut": AreaSiegeShortcut,
	"siege_left":     AreaSiegeLeft,
	"siege_right":    AreaSiegeRight,
	"siege_palace":   AreaSiegePalace,
	"random":         AreaRandom,
}

func init() {
	for i := 1; i <= 9; i++ {
		areaNames[fmt.Sprintf("demon_tower_%d", i)] = AreaDemonTower1 + AreaType(i-1)
	}
}

// ParseAreaType maps a map_list.yaml area type name to its tag.
func ParseAreaType(s string) (AreaType, error) {
	t, ok := areaNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return AreaUnknown, fmt.Errorf("unknown area type %q", s)
	}
	return t, nil
}

// DemonTowerArea returns the tag of demon tower floor 1..9.
func DemonTowerArea(floor int) (AreaType, bool) {
	if floor < 1 || floor > 9 {
		return AreaUnknown, false
	}
	return AreaDemonTower1 + AreaType(floor-1), true
}

// Area is a named square zone of half-width Radius around Center.
type Area struct {
	Name   string
	Type   AreaType
	Center Point
	Radius int
}

// Contains reports whether p lies inside the zone.
func (a *Area) Contains(p Point) bool {
	return a.Center.InRange(p, a.Radius)
}

// AreaSet is the immutable zone list of a map, in declaration order.
type AreaSet struct {
	all   []*Area
	fixed map[AreaType]*Area // first area of each non-random type
}

// NewAreaSet builds the zone list from map metadata.
func NewAreaSet(infos []data.AreaInfo) (*AreaSet, error) {
	s := &AreaSet{fixed: make(map[AreaType]*Area)}
	for _, ai := range infos {
		t, err := ParseAreaType(ai.Type)
		if err != nil {
			return nil, fmt.Errorf("area %q: %w", ai.Name, err)
		}
		a := &Area{
			Name:   ai.Name,
			Type:   t,
			Center: Point{X: ai.X, Y: ai.Y},
			Radius: ai.Radius,
		}
		s.all = append(s.all, a)
		if t != AreaRandom && t != AreaUnknown {
			if _, dup := s.fixed[t]; !dup {
				s.fixed[t] = a
			}
		}
	}
	return s, nil
}

// Get resolves a zone by type. Unknown yields the first declared area,
// Random the first random area; nil when nothing matches.
func (s *AreaSet) Get(t AreaType) *Area {
	switch t {
	case AreaUnknown:
		if len(s.all) == 0 {
			return nil
		}
		return s.all[0]
	case AreaRandom:
		for _, a := range s.all {
			if a.Type == AreaRandom {
				return a
			}
		}
		return nil
	default:
		return s.fixed[t]
	}
}

// RandomAreasAt returns every random-tagged area containing p, in order.
func (s *AreaSet) RandomAreasAt(p Point) []*Area {
	var out []*Area
	for _, a := range s.all {
		if a.Type == AreaRandom && a.Contains(p) {
			out = append(out, a)
		}
	}
	return out
}

// All returns the zones in declaration order.
func (s *AreaSet) All() []*Area {
	return s.all
}
