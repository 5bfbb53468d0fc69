package world

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/l1jgo/mapsim/internal/core/event"
	"github.com/l1jgo/mapsim/internal/data"
)

// Replica stages. Warmup runs 0..5, wave w (0-based) runs at stageWaves+w,
// the hold check sits right after the last wave, closing counts 100..109
// and teardown is 110.
const (
	StageIdle     = -1
	warmupSteps   = 6
	stageWaves    = warmupSteps
	StageClosing  = 100
	StageTeardown = 110
)

// waveProgress walks the spawn entries of the current wave.
type waveProgress struct {
	spawn   int // index into the wave's spawn list
	emitted int // monsters emitted for that entry
}

// ReplicaController drives the staged encounter of one replica instance.
// process runs on the tick goroutine only.
type ReplicaController struct {
	m       *Map
	script  *data.ReplicaScript
	timers  ReplicaTimers
	spawnAt Point

	stage    int
	progress waveProgress
	next     time.Time
	guard    *Monster

	runID     uuid.UUID
	outcome   string
	wavesSeen int
	startedAt time.Time

	closed atomic.Bool
}

// AttachReplica makes m host script. The spawn point falls back to
// deps.SpawnPoint when the script has none.
func (m *Map) AttachReplica(script *data.ReplicaScript) error {
	if err := script.Validate(); err != nil {
		return err
	}
	spawn := m.deps.SpawnPoint
	if script.SpawnX != 0 || script.SpawnY != 0 {
		spawn = Point{X: script.SpawnX, Y: script.SpawnY}
	}
	m.replica = &ReplicaController{
		m:       m,
		script:  script,
		timers:  m.deps.Timers,
		spawnAt: spawn,
		stage:   StageIdle,
	}
	return nil
}

func (c *ReplicaController) Stage() int            { return c.stage }
func (c *ReplicaController) NextAction() time.Time { return c.next }
func (c *ReplicaController) Guard() *Monster       { return c.guard }
func (c *ReplicaController) Outcome() string       { return c.outcome }
func (c *ReplicaController) RunID() uuid.UUID      { return c.runID }
func (c *ReplicaController) Closed() bool          { return c.closed.Load() }

func (c *ReplicaController) holdStage() int {
	return stageWaves + len(c.script.Waves)
}

func (c *ReplicaController) process(now time.Time) {
	if c.closed.Load() {
		return
	}

	if c.stage < StageTeardown && c.m.PlayerCount() == 0 {
		c.emptied(now)
		return
	}

	switch {
	case c.stage == StageIdle:
		c.begin(now)

	case c.stage < stageWaves:
		if now.After(c.next) {
			remaining := time.Duration(warmupSteps-c.stage) * c.timers.WarmupStep
			c.m.BroadcastAnnouncement(c.texts().Countdown(int(remaining / time.Second)))
			c.stage++
			c.next = now.Add(c.timers.WarmupStep)
		}

	case c.stage < c.holdStage():
		if c.guardDead() {
			c.abort(now)
			return
		}
		if now.After(c.next) {
			c.spawnTick(now)
		}

	case c.stage == c.holdStage():
		if c.guardDead() {
			c.abort(now)
			return
		}
		if c.survivors() == 0 {
			c.m.BroadcastAnnouncement(c.texts().AllDefeated(int(c.timers.ClosingDelay / time.Second)))
			c.outcome = event.OutcomeCleared
			c.stage = StageTeardown
			c.next = now.Add(c.timers.ClosingDelay)
			c.m.log.Info("副本怪物全數清除", zap.Int("waves", len(c.script.Waves)))
		}

	case c.stage < StageTeardown:
		if now.After(c.next) {
			c.m.BroadcastAnnouncement(c.texts().Closing())
			c.stage += 2
			c.next = now.Add(c.timers.ClosingStep)
		}

	default:
		if now.After(c.next) {
			c.teardown(now)
		}
	}
}

// emptied handles an instance with no players. Before the first wave the
// run resets; once waves have started the run is abandoned.
func (c *ReplicaController) emptied(now time.Time) {
	switch {
	case c.stage == StageIdle:
	case c.stage < stageWaves:
		c.reset()
	default:
		if c.outcome == "" {
			c.outcome = event.OutcomeAbandoned
		}
		c.stage = StageTeardown
		c.next = now
		c.m.log.Info("副本無玩家，準備關閉", zap.String("outcome", c.outcome))
	}
}

func (c *ReplicaController) begin(now time.Time) {
	c.runID = uuid.New()
	c.stage = 0
	c.progress = waveProgress{}
	c.next = time.Time{}
	c.outcome = ""
	c.wavesSeen = 0
	c.startedAt = now

	if c.script.Guard != "" {
		at := Point{X: c.script.GuardX, Y: c.script.GuardY}
		c.guard = c.m.SpawnMonster(c.script.Guard, at, 0, now)
		if c.guard == nil {
			c.m.log.Warn("副本守衛生成失敗", zap.String("guard", c.script.Guard))
		}
	}

	players := c.m.PlayerCount()
	c.m.log.Info("副本開始", zap.Stringer("run", c.runID), zap.Int("players", players), zap.Int("waves", len(c.script.Waves)))
	c.emit(func(b *event.Bus) {
		event.Emit(b, event.ReplicaStarted{
			RunID:   c.runID,
			MapID:   c.m.MapID(),
			RouteID: c.m.RouteID(),
			Players: players,
			At:      now,
		})
	})
}

func (c *ReplicaController) reset() {
	if c.guard != nil {
		c.guard.Despawn()
		c.guard = nil
	}
	c.stage = StageIdle
	c.progress = waveProgress{}
	c.next = time.Time{}
	c.m.log.Info("副本重置")
}

// survivors counts living monsters other than the escort guard, which is
// left out by identity even when its template lacks the guard flag.
func (c *ReplicaController) survivors() int {
	if c.guard == nil {
		return c.m.AliveMonsters()
	}
	return c.m.aliveMonstersExcept(c.guard)
}

// guardDead is false when no guard was ever attached.
func (c *ReplicaController) guardDead() bool {
	if c.guard == nil {
		return false
	}
	return c.guard.Dead() || !c.m.Contains(c.guard)
}

func (c *ReplicaController) abort(now time.Time) {
	c.stage = StageClosing
	c.next = now
	c.outcome = event.OutcomeGuardDied
	c.m.log.Info("副本守衛死亡，副本關閉", zap.Int("waves_seen", c.wavesSeen))
}

// spawnTick emits one monster of the current wave and schedules the next.
func (c *ReplicaController) spawnTick(now time.Time) {
	wave := c.stage - stageWaves
	spawns := c.script.Waves[wave].Spawns

	if c.progress == (waveProgress{}) {
		c.m.BroadcastAnnouncement(c.texts().WaveStarted(wave + 1))
		c.wavesSeen = wave + 1
		c.emit(func(b *event.Bus) {
			event.Emit(b, event.ReplicaWaveStarted{
				RunID:   c.runID,
				MapID:   c.m.MapID(),
				RouteID: c.m.RouteID(),
				Wave:    wave + 1,
				At:      now,
			})
		})
	}

	// entries with no count emit nothing
	for c.progress.spawn < len(spawns) && spawns[c.progress.spawn].Count <= 0 {
		c.progress.spawn++
	}

	if c.progress.spawn < len(spawns) {
		sp := spawns[c.progress.spawn]
		c.m.SpawnMonster(sp.Monster, c.spawnAt, c.timers.MonsterLifetime, now)
		c.progress.emitted++
		if c.progress.emitted >= sp.Count {
			c.progress.spawn++
			c.progress.emitted = 0
		}
	}

	if c.progress.spawn >= len(spawns) {
		c.stage++
		c.progress = waveProgress{}
		c.next = now.Add(c.timers.WavePause)
		return
	}
	c.next = now.Add(c.timers.SpawnInterval)
}

// teardown evicts everything and closes the instance for good.
func (c *ReplicaController) teardown(now time.Time) {
	for _, p := range c.m.Players() {
		if p.Dead() {
			p.Resurrect()
			continue
		}
		var target *Map
		if c.m.deps.Maps != nil {
			target = c.m.deps.Maps.GetMap(p.RespawnMapID())
		}
		if target == nil {
			c.m.log.Warn("找不到重生地圖", zap.Int32("player", p.ObjectID()), zap.Int("respawn_map", p.RespawnMapID()))
			continue
		}
		p.Teleport(target, AreaResurrection)
	}
	for _, pet := range c.m.Pets() {
		if pet.Dead() {
			pet.Despawn()
		} else {
			pet.Recall()
		}
	}
	for _, it := range c.m.Items() {
		it.Destroy()
	}
	for _, objs := range [][]Object{c.m.objects.Monsters(), c.m.objects.Others()} {
		for _, o := range objs {
			if d, ok := o.(Despawner); ok {
				d.Despawn()
			} else {
				c.m.Leave(o)
			}
		}
	}
	c.guard = nil

	if c.outcome == "" {
		c.outcome = event.OutcomeAbandoned
	}
	c.closed.Store(true)

	c.m.log.Info("副本已關閉",
		zap.Stringer("run", c.runID),
		zap.String("outcome", c.outcome),
		zap.Int("waves_seen", c.wavesSeen),
		zap.Duration("duration", now.Sub(c.startedAt)),
	)
	c.emit(func(b *event.Bus) {
		event.Emit(b, event.ReplicaClosed{
			RunID:      c.runID,
			MapID:      c.m.MapID(),
			RouteID:    c.m.RouteID(),
			Outcome:    c.outcome,
			WavesTotal: len(c.script.Waves),
			WavesSeen:  c.wavesSeen,
			StartedAt:  c.startedAt,
			ClosedAt:   now,
		})
	})
}

func (c *ReplicaController) texts() Announcer {
	return c.m.deps.Texts
}

func (c *ReplicaController) emit(fn func(b *event.Bus)) {
	if c.m.deps.Bus != nil {
		fn(c.m.deps.Bus)
	}
}
