package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Tick     TickConfig     `toml:"tick"`
	Logging  LoggingConfig  `toml:"logging"`
	World    WorldConfig    `toml:"world"`
	Replica  ReplicaConfig  `toml:"replica"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	ID        int    `toml:"id"`
	Language  int    `toml:"language"` // 0=US, 3=Taiwan, 4=Japan, 5=China
	StartTime int64  // set at boot, not from config
}

// DatabaseConfig 空的 DSN 代表不啟用副本紀錄持久化。
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type TickConfig struct {
	Rate time.Duration `toml:"rate"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type WorldConfig struct {
	MapList     string `toml:"map_list"`     // map_list.yaml
	TerrainDir  string `toml:"terrain_dir"`  // {mapid}.terrain.zst files
	MonsterList string `toml:"monster_list"` // monster_list.yaml
	ReplicaList string `toml:"replica_list"` // replica_list.yaml
	ScriptsDir  string `toml:"scripts_dir"`  // lua scripts root
	SiegeStage  int    `toml:"siege_stage"`  // initial siege stage; >=2 means siege in progress
	SiegeDrop   bool   `toml:"siege_drop"`   // allow drops on siege-gated maps during siege
	SiegeMaps   []int  `toml:"siege_maps"`   // maps whose drops are gated by the siege stage
	Seed        int64  `toml:"seed"`         // 0 = seed from clock
}

type ReplicaConfig struct {
	SpawnX int `toml:"spawn_x"`
	SpawnY int `toml:"spawn_y"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Tick.Rate <= 0 {
		return nil, fmt.Errorf("parse config %s: tick rate must be positive", path)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Default returns the built-in configuration used when no file overrides it.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "L1JGO-MapSim",
			ID:       1,
			Language: 0,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Tick: TickConfig{
			Rate: 200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		World: WorldConfig{
			MapList:     "data/yaml/map_list.yaml",
			TerrainDir:  "map",
			MonsterList: "data/yaml/monster_list.yaml",
			ReplicaList: "data/yaml/replica_list.yaml",
			ScriptsDir:  "scripts",
			SiegeMaps:   []int{152, 178},
		},
		Replica: ReplicaConfig{
			SpawnX: 995,
			SpawnY: 283,
		},
	}
}
