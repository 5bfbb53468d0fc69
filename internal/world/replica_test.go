package world

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/l1jgo/mapsim/internal/core/event"
	"github.com/l1jgo/mapsim/internal/data"
)

const (
	respawnMapID = 4
	replicaMapID = 80
)

type replicaFixture struct {
	t   *testing.T
	mgr *Manager
	m   *Map
	clk *fakeClock
	bus *event.Bus
}

func newReplicaFixture(t *testing.T, script data.ReplicaScript) *replicaFixture {
	t.Helper()
	town := testEntry(respawnMapID, Point{0, 0}, 50, 50, walk)
	town.Info.Areas = []data.AreaInfo{{Name: "town", Type: "resurrection", X: 25, Y: 25, Radius: 5}}
	hall := testEntry(replicaMapID, Point{0, 0}, 50, 50, walk)
	hall.Info.Replica = true

	script.MapID = replicaMapID
	replicas := data.NewReplicaTable(script)

	clk := newFakeClock()
	bus := event.NewBus()
	deps := testDeps(clk)
	deps.Bus = bus
	deps.SpawnPoint = Point{25, 25}
	deps.Monsters = data.NewMonsterTable(
		data.MonsterTemplate{Name: "Oma"},
		data.MonsterTemplate{Name: "Bat"},
		data.MonsterTemplate{Name: "Guard", Guard: true},
	)

	mgr, err := NewManager(data.NewMapDataTable(town, hall), replicas, deps)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	m, err := mgr.OpenReplica(replicaMapID)
	if err != nil {
		t.Fatalf("open replica: %v", err)
	}
	return &replicaFixture{t: t, mgr: mgr, m: m, clk: clk, bus: bus}
}

func (f *replicaFixture) step(d time.Duration) {
	f.clk.Advance(d)
	f.m.Process()
}

func (f *replicaFixture) stage() int {
	return f.m.Replica().Stage()
}

func (f *replicaFixture) join(id int32) *testPlayer {
	p := newTestPlayer(id, Point{10, int(id)}, f.m)
	p.respawnMap = respawnMapID
	if !f.m.Enter(p) {
		f.t.Fatalf("player %d could not enter", id)
	}
	return p
}

// warmup starts the run and plays all six countdown steps.
func (f *replicaFixture) warmup() {
	f.step(time.Millisecond)
	if f.stage() != 0 {
		f.t.Fatalf("expected warmup stage 0, got %d", f.stage())
	}
	for i := 0; i < warmupSteps; i++ {
		f.step(6 * time.Second)
	}
	if f.stage() != stageWaves {
		f.t.Fatalf("expected stage %d after warmup, got %d", stageWaves, f.stage())
	}
}

func countPrefix(texts []string, prefix string) int {
	n := 0
	for _, s := range texts {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func TestReplicaIdleUntilPlayerArrives(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{})
	f.step(time.Second)
	if f.stage() != StageIdle {
		t.Fatalf("empty replica must stay idle, got %d", f.stage())
	}
	f.join(1)
	if f.stage() != StageIdle {
		t.Fatalf("joining must not advance the stage")
	}
	f.step(time.Millisecond)
	if f.stage() != 0 {
		t.Fatalf("player presence must start warmup, got %d", f.stage())
	}
	if event.Pending[event.ReplicaStarted](f.bus) != 1 {
		t.Fatalf("expected a started event")
	}
	if f.m.Replica().RunID() == uuid.Nil {
		t.Fatalf("a started run must carry a run id")
	}
}

func TestReplicaWarmupCountdown(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{
		Waves: []data.WaveInfo{{Spawns: []data.SpawnInfo{{Monster: "Oma", Count: 1}}}},
	})
	p := f.join(1)
	f.warmup()

	texts := p.texts()
	if len(texts) != warmupSteps {
		t.Fatalf("expected %d countdowns, got %d: %q", warmupSteps, len(texts), texts)
	}
	if texts[0] != "Monsters will refresh in 30 seconds, so be prepared!" {
		t.Fatalf("unexpected first countdown %q", texts[0])
	}
	if texts[5] != "Monsters will refresh in 5 seconds, so be prepared!" {
		t.Fatalf("unexpected last countdown %q", texts[5])
	}

	f.step(time.Second)
	if len(p.texts()) != warmupSteps {
		t.Fatalf("first wave must wait for the last countdown step")
	}
	f.step(5 * time.Second)
	if got := countPrefix(p.texts(), "Wave 1 of monsters"); got != 1 {
		t.Fatalf("expected wave 1 announcement, texts %q", p.texts())
	}
}

func TestReplicaZeroWavesGoesStraightToHold(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{})
	p := f.join(1)
	f.warmup()

	f.step(time.Second)
	if f.stage() != StageTeardown {
		t.Fatalf("zero-wave run must close after warmup, got %d", f.stage())
	}
	if f.m.Stats().MonstersSpawned != 0 {
		t.Fatalf("no spawn tick may fire")
	}
	if countPrefix(p.texts(), "All monsters have been defeated") != 1 {
		t.Fatalf("expected cleared announcement, texts %q", p.texts())
	}

	f.step(29 * time.Second)
	if f.m.Closed() {
		t.Fatalf("closed before the closing delay")
	}
	f.step(2 * time.Second)
	if !f.m.Closed() {
		t.Fatalf("expected teardown after the closing delay")
	}
	if p.teleportTo == nil || p.teleportTo.MapID() != respawnMapID || p.teleportVia != AreaResurrection {
		t.Fatalf("player must be sent to the respawn map's resurrection area")
	}
	if f.m.Replica().Outcome() != event.OutcomeCleared {
		t.Fatalf("unexpected outcome %q", f.m.Replica().Outcome())
	}
	if event.Pending[event.ReplicaClosed](f.bus) != 1 {
		t.Fatalf("expected a closed event")
	}
}

func TestReplicaWaveSpawning(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{
		Waves: []data.WaveInfo{{Spawns: []data.SpawnInfo{
			{Monster: "Oma", Count: 2},
			{Monster: "Bat", Count: 1},
		}}},
	})
	f.join(1)
	f.warmup()

	f.step(6 * time.Second)
	r := f.m.Replica()
	if r.progress != (waveProgress{spawn: 0, emitted: 1}) {
		t.Fatalf("unexpected progress %+v", r.progress)
	}
	f.step(time.Second)
	if f.m.Stats().MonstersSpawned != 1 {
		t.Fatalf("spawns must be spaced by the spawn interval")
	}
	f.step(2 * time.Second)
	if r.progress != (waveProgress{spawn: 1, emitted: 0}) {
		t.Fatalf("unexpected progress %+v", r.progress)
	}
	f.step(3 * time.Second)

	hold := stageWaves + 1
	if f.stage() != hold {
		t.Fatalf("expected hold stage %d, got %d", hold, f.stage())
	}
	if r.progress != (waveProgress{}) {
		t.Fatalf("progress must reset after a wave")
	}
	if !r.NextAction().Equal(f.clk.Now().Add(60 * time.Second)) {
		t.Fatalf("wave pause must be 60s")
	}
	if f.m.AliveMonsters() != 3 {
		t.Fatalf("expected 3 monsters, got %d", f.m.AliveMonsters())
	}

	f.step(time.Second)
	if f.stage() != hold {
		t.Fatalf("hold must wait for survivors")
	}
	for _, o := range f.m.objects.Monsters() {
		o.(*Monster).Kill()
	}
	f.step(time.Second)
	if f.stage() != StageTeardown || r.Outcome() != event.OutcomeCleared {
		t.Fatalf("clearing the hall must start the close, stage %d", f.stage())
	}
}

func TestReplicaUnknownTemplateIsSkipped(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{
		Waves: []data.WaveInfo{{Spawns: []data.SpawnInfo{{Monster: "Ghost", Count: 2}}}},
	})
	f.join(1)
	f.warmup()
	f.step(6 * time.Second)
	f.step(3 * time.Second)
	if f.stage() != stageWaves+1 {
		t.Fatalf("unknown template must still progress, stage %d", f.stage())
	}
	if f.m.Stats().MonstersSpawned != 0 {
		t.Fatalf("unknown template must not spawn")
	}
}

func TestReplicaGuardDeathAborts(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{
		Guard: "Guard", GuardX: 20, GuardY: 20,
		Waves: []data.WaveInfo{
			{Spawns: []data.SpawnInfo{{Monster: "Oma", Count: 3}}},
			{Spawns: []data.SpawnInfo{{Monster: "Oma", Count: 3}}},
		},
	})
	p := f.join(1)
	f.warmup()

	guard := f.m.Replica().Guard()
	if guard == nil || guard.Category() != CategoryGuard {
		t.Fatalf("guard must be spawned at warmup")
	}

	f.step(6 * time.Second)
	guard.Kill()
	f.step(time.Millisecond)
	if f.stage() != StageClosing {
		t.Fatalf("guard death must jump to closing on the same tick, got %d", f.stage())
	}
	if f.m.Replica().Outcome() != event.OutcomeGuardDied {
		t.Fatalf("unexpected outcome %q", f.m.Replica().Outcome())
	}

	f.step(time.Millisecond)
	for i := 0; i < 4; i++ {
		f.step(3 * time.Second)
	}
	if f.stage() != StageTeardown {
		t.Fatalf("closing must reach teardown, got %d", f.stage())
	}
	if got := countPrefix(p.texts(), "The guards are dead"); got != 5 {
		t.Fatalf("expected 5 closing announcements, got %d", got)
	}

	f.step(3 * time.Second)
	if !f.m.Closed() {
		t.Fatalf("expected teardown")
	}
	if f.m.objects.MonsterCount() != 0 {
		t.Fatalf("teardown must despawn monsters")
	}
}

func TestReplicaGuardDeathInHold(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{Guard: "Guard", GuardX: 20, GuardY: 20})
	f.join(1)
	f.warmup()
	f.m.Replica().Guard().Despawn()
	f.step(time.Millisecond)
	if f.stage() != StageClosing {
		t.Fatalf("missing guard in hold must abort, got %d", f.stage())
	}
}

func TestReplicaEmptiedBeforeWavesResets(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{Guard: "Guard", GuardX: 20, GuardY: 20})
	p := f.join(1)
	f.step(time.Millisecond)
	f.step(6 * time.Second)
	if f.m.objects.MonsterCount() != 1 {
		t.Fatalf("guard must be on the map")
	}

	f.m.Leave(p)
	f.step(time.Second)
	if f.stage() != StageIdle {
		t.Fatalf("empty warmup must reset to idle, got %d", f.stage())
	}
	if f.m.Replica().Guard() != nil || f.m.objects.MonsterCount() != 0 {
		t.Fatalf("reset must remove the guard")
	}
}

func TestReplicaAbandoned(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{
		Waves: []data.WaveInfo{{Spawns: []data.SpawnInfo{{Monster: "Oma", Count: 5}}}},
	})
	p := f.join(1)
	f.warmup()
	f.step(6 * time.Second)

	f.m.Leave(p)
	f.step(time.Millisecond)
	if f.stage() != StageTeardown || f.m.Replica().Outcome() != event.OutcomeAbandoned {
		t.Fatalf("abandoned run must go to teardown, stage %d", f.stage())
	}
	f.step(time.Millisecond)
	if !f.m.Closed() {
		t.Fatalf("abandoned run must close")
	}
}

func TestReplicaTeardownEvictsEverything(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{})
	alive := f.join(1)
	dead := f.join(2)
	dead.dead = true
	lost := f.join(3)
	lost.respawnMap = 999

	livePet := &thing{id: 10, cat: CategoryPet, pos: Point{5, 5}, m: f.m}
	deadPet := &thing{id: 11, cat: CategoryPet, pos: Point{5, 6}, m: f.m, dead: true}
	item := &thing{id: 12, cat: CategoryItem, pos: Point{5, 7}, m: f.m}
	other := &thing{id: 13, cat: CategoryOther, pos: Point{5, 8}, m: f.m}
	for _, o := range []*thing{livePet, deadPet, item, other} {
		f.m.Enter(o)
	}
	mon := f.m.SpawnMonster("Oma", Point{30, 30}, 0, f.clk.Now())

	f.warmup()
	mon.Kill()
	f.step(time.Second)
	f.step(31 * time.Second)
	if !f.m.Closed() {
		t.Fatalf("expected teardown")
	}

	if alive.teleportTo == nil || alive.resurrected != 0 {
		t.Fatalf("living player must be teleported")
	}
	if dead.resurrected != 1 || dead.teleportTo != nil {
		t.Fatalf("dead player must be resurrected in place")
	}
	if lost.teleportTo != nil {
		t.Fatalf("player with an unknown respawn map must not be teleported")
	}
	if !livePet.recalled || livePet.despawned {
		t.Fatalf("living pet must be recalled")
	}
	if !deadPet.despawned {
		t.Fatalf("dead pet must be despawned")
	}
	if !item.destroyed {
		t.Fatalf("item must be destroyed")
	}
	if !other.despawned || f.m.Contains(mon) {
		t.Fatalf("remaining objects must be despawned")
	}

	before := len(alive.texts())
	f.step(time.Minute)
	if len(alive.texts()) != before || !f.m.Closed() {
		t.Fatalf("closed replica must ignore further ticks")
	}
}

func TestAttachReplicaRejectsTooManyWaves(t *testing.T) {
	m := mustMap(t, testEntry(replicaMapID, Point{0, 0}, 10, 10, walk), testDeps(newFakeClock()))
	script := &data.ReplicaScript{MapID: replicaMapID, Waves: make([]data.WaveInfo, data.MaxReplicaWaves+1)}
	if err := m.AttachReplica(script); err == nil {
		t.Fatalf("expected wave count error")
	}
	if m.Replica() != nil {
		t.Fatalf("rejected script must not attach")
	}
}

func TestOrdinaryMapProcessIsNoop(t *testing.T) {
	m := mustMap(t, testEntry(respawnMapID, Point{0, 0}, 10, 10, walk), testDeps(newFakeClock()))
	p := newTestPlayer(1, Point{1, 1}, m)
	m.Enter(p)
	m.Process()
	if m.Replica() != nil || m.Closed() || len(p.texts()) != 0 {
		t.Fatalf("ordinary maps must not run a replica")
	}
}

func TestReplicaHoldIgnoresGuardWithoutGuardFlag(t *testing.T) {
	// the escort uses an ordinary monster template
	f := newReplicaFixture(t, data.ReplicaScript{
		Guard: "Oma", GuardX: 20, GuardY: 20,
		Waves: []data.WaveInfo{{Spawns: []data.SpawnInfo{{Monster: "Bat", Count: 1}}}},
	})
	f.join(1)
	f.warmup()

	guard := f.m.Replica().Guard()
	if guard == nil || guard.Category() != CategoryMonster {
		t.Fatalf("expected the escort to spawn as a plain monster")
	}
	f.step(6 * time.Second)
	if f.stage() != stageWaves+1 {
		t.Fatalf("expected hold stage, got %d", f.stage())
	}
	for _, o := range f.m.objects.Monsters() {
		if o != Object(guard) {
			o.(*Monster).Kill()
		}
	}
	f.step(time.Second)
	if f.m.AliveMonsters() != 1 {
		t.Fatalf("the escort itself is still a living monster on the map")
	}
	if f.stage() != StageTeardown || f.m.Replica().Outcome() != event.OutcomeCleared {
		t.Fatalf("escort must not hold the run open, stage %d", f.stage())
	}
	f.step(31 * time.Second)
	if !f.m.Closed() || f.m.Contains(guard) {
		t.Fatalf("teardown must close the run and remove the escort")
	}
}

func TestReplicaMembershipChurnDuringProcess(t *testing.T) {
	f := newReplicaFixture(t, data.ReplicaScript{
		Waves: []data.WaveInfo{
			{Spawns: []data.SpawnInfo{{Monster: "Bat", Count: 3}}},
			{Spawns: []data.SpawnInfo{{Monster: "Oma", Count: 2}}},
		},
	})
	f.join(1)

	var (
		stop atomic.Bool
		wg   sync.WaitGroup
	)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			objs := []Object{
				newTestPlayer(int32(100+g), Point{5 + g, 5}, f.m),
				&thing{id: int32(200 + g), cat: CategoryItem, pos: Point{6, 6 + g}, m: f.m},
				&thing{id: int32(300 + g), cat: CategoryPet, pos: Point{7, 7}, m: f.m},
				&thing{id: int32(400 + g), cat: CategoryOther, pos: Point{8, 8}, m: f.m, blocking: true},
			}
			for i := 0; !stop.Load(); i++ {
				o := objs[i%len(objs)]
				f.m.Enter(o)
				f.m.Relocate(o, Point{i % 40, (i*7 + g) % 40})
				if i%3 == 0 {
					f.m.Leave(o)
				}
				f.m.At(Point{i % 50, g}).Objects()
				f.m.CanMove(Point{i % 50, g})
			}
		}(g)
	}

	f.warmup()
	for i := 0; i < 400; i++ {
		if i == 100 {
			for _, o := range f.m.objects.Monsters() {
				o.(*Monster).Kill()
			}
		}
		f.step(2 * time.Second)
	}
	stop.Store(true)
	wg.Wait()

	if !f.m.Closed() {
		t.Fatalf("run must have closed, stage %d", f.stage())
	}

	// grid, registry and position index must agree
	f.m.memberMu.Lock()
	defer f.m.memberMu.Unlock()
	r := f.m.objects
	total := r.PlayerCount() + r.PetCount() + r.ItemCount() + r.MonsterCount() + r.OtherCount()
	if total != len(f.m.where) {
		t.Fatalf("registry holds %d objects, position index %d", total, len(f.m.where))
	}
	for o, p := range f.m.where {
		if !r.Has(o) || !f.m.grid.At(p).Has(o) {
			t.Fatalf("object %d at %v missing from a membership view", o.ObjectID(), p)
		}
	}
}
