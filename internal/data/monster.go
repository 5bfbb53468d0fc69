package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MonsterTemplate holds static data for a monster type loaded from YAML.
// Combat stats are carried through untouched; this module only places monsters.
type MonsterTemplate struct {
	Name     string `yaml:"name"`
	Level    int    `yaml:"level"`
	HP       int    `yaml:"hp"`
	GfxID    int    `yaml:"gfx_id"`
	Guard    bool   `yaml:"guard"`    // escort guard rather than hostile monster
	Passable bool   `yaml:"passable"` // does not block its cell
}

type monsterListFile struct {
	Monsters []MonsterTemplate `yaml:"monsters"`
}

// MonsterTable holds all monster templates indexed by name.
type MonsterTable struct {
	templates map[string]*MonsterTemplate
}

// LoadMonsterTable loads monster templates from a YAML file.
func LoadMonsterTable(path string) (*MonsterTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read monster_list: %w", err)
	}
	var f monsterListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse monster_list: %w", err)
	}
	t := &MonsterTable{templates: make(map[string]*MonsterTemplate, len(f.Monsters))}
	for i := range f.Monsters {
		m := &f.Monsters[i]
		if m.Name == "" {
			return nil, fmt.Errorf("parse monster_list: entry %d has no name", i)
		}
		t.templates[m.Name] = m
	}
	return t, nil
}

// NewMonsterTable builds a table from templates (tests, tools).
func NewMonsterTable(templates ...MonsterTemplate) *MonsterTable {
	t := &MonsterTable{templates: make(map[string]*MonsterTemplate, len(templates))}
	for i := range templates {
		m := templates[i]
		t.templates[m.Name] = &m
	}
	return t
}

// Get returns the template with the given name.
func (t *MonsterTable) Get(name string) (*MonsterTemplate, bool) {
	m, ok := t.templates[name]
	return m, ok
}

// Count returns the number of templates loaded.
func (t *MonsterTable) Count() int {
	return len(t.templates)
}
