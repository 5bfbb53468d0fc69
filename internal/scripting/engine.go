package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for tunable replica content.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// core first so world scripts can use its helpers
	for _, sub := range []string{"core", "world"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// NewEngineFromString builds an engine from inline source (tests, tools).
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load inline script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// --- Replica Bridge ---

// ReplicaTimers holds the replica pacing from Lua. Zero fields fall back to defaults.
type ReplicaTimers struct {
	WarmupStep      time.Duration
	SpawnInterval   time.Duration
	WavePause       time.Duration
	ClosingDelay    time.Duration
	ClosingStep     time.Duration
	MonsterLifetime time.Duration
}

// DefaultReplicaTimers is used when get_replica_timers is absent or fails.
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

// GetReplicaTimers calls Lua get_replica_timers(). Values are in seconds.
func (e *Engine) GetReplicaTimers() ReplicaTimers {
	def := DefaultReplicaTimers()
	fn := e.vm.GetGlobal("get_replica_timers")
	if fn == lua.LNil {
		return def
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}); err != nil {
		e.log.Error("lua get_replica_timers error", zap.Error(err))
		return def
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return def
	}

	return ReplicaTimers{
		WarmupStep:      lSeconds(rt, "warmup_step", def.WarmupStep),
		SpawnInterval:   lSeconds(rt, "spawn_interval", def.SpawnInterval),
		WavePause:       lSeconds(rt, "wave_pause", def.WavePause),
		ClosingDelay:    lSeconds(rt, "closing_delay", def.ClosingDelay),
		ClosingStep:     lSeconds(rt, "closing_step", def.ClosingStep),
		MonsterLifetime: lSeconds(rt, "monster_lifetime", def.MonsterLifetime),
	}
}

// Announce calls Lua replica_announce(kind, n). ok is false when the script
// does not override the text (function missing, nil return, or error).
func (e *Engine) Announce(kind string, n int) (string, bool) {
	fn := e.vm.GetGlobal("replica_announce")
	if fn == lua.LNil {
		return "", false
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(kind), lua.LNumber(n)); err != nil {
		e.log.Error("lua replica_announce error", zap.String("kind", kind), zap.Error(err))
		return "", false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	s, ok := result.(lua.LString)
	if !ok || s == "" {
		return "", false
	}
	return string(s), true
}

// Texts is the announcement contract replica maps consume.
type Texts interface {
	Countdown(seconds int) string
	WaveStarted(wave int) string
	AllDefeated(closeIn int) string
	Closing() string
}

// ScriptedTexts lets Lua override individual announcements and falls back
// to the compiled texts otherwise.
type ScriptedTexts struct {
	engine   *Engine
	fallback Texts
}

func NewScriptedTexts(e *Engine, fallback Texts) *ScriptedTexts {
	return &ScriptedTexts{engine: e, fallback: fallback}
}

func (t *ScriptedTexts) Countdown(seconds int) string {
	if s, ok := t.engine.Announce("countdown", seconds); ok {
		return s
	}
	return t.fallback.Countdown(seconds)
}

func (t *ScriptedTexts) WaveStarted(wave int) string {
	if s, ok := t.engine.Announce("wave", wave); ok {
		return s
	}
	return t.fallback.WaveStarted(wave)
}

func (t *ScriptedTexts) AllDefeated(closeIn int) string {
	if s, ok := t.engine.Announce("cleared", closeIn); ok {
		return s
	}
	return t.fallback.AllDefeated(closeIn)
}

func (t *ScriptedTexts) Closing() string {
	if s, ok := t.engine.Announce("closing", 0); ok {
		return s
	}
	return t.fallback.Closing()
}

// --- Lua helpers ---

// lSeconds reads a positive number of seconds, or returns def.
func lSeconds(t *lua.LTable, key string, def time.Duration) time.Duration {
	v, ok := t.RawGetString(key).(lua.LNumber)
	if !ok || v <= 0 {
		return def
	}
	return time.Duration(float64(v) * float64(time.Second))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
