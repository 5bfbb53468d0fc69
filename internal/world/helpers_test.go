package world

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/mapsim/internal/data"
	"github.com/l1jgo/mapsim/internal/net/packet"
)

const walk = 0x10000000

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: testEpoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testEntry builds a map whose every cell carries word.
func testEntry(mapID int, start Point, w, h int, word uint32) *data.MapEntry {
	words := make([]uint32, w*h)
	for i := range words {
		words[i] = word
	}
	return &data.MapEntry{
		Info: data.MapInfo{MapID: mapID, Name: "test", Routes: 1},
		Terrain: &data.TerrainData{
			StartX: start.X, StartY: start.Y, Width: w, Height: h, Words: words,
		},
	}
}

// setWord overwrites the flag word of one absolute cell.
func setWord(e *data.MapEntry, p Point, word uint32) {
	t := e.Terrain
	t.Words[(p.X-t.StartX)*t.Height+(p.Y-t.StartY)] = word
}

func testDeps(clk *fakeClock) Deps {
	return Deps{
		Clock: clk,
		Rand:  NewRand(7),
		Log:   zap.NewNop(),
	}
}

func mustMap(t interface{ Fatalf(string, ...any) }, e *data.MapEntry, deps Deps) *Map {
	m, err := NewMap(e, 1, deps)
	if err != nil {
		t.Fatalf("new map: %v", err)
	}
	return m
}

// thing is a generic object with a fixed category.
type thing struct {
	id       int32
	cat      Category
	pos      Point
	blocking bool
	dead     bool

	m         *Map
	despawned bool
	destroyed bool
	recalled  bool
}

func (o *thing) ObjectID() int32    { return o.id }
func (o *thing) Category() Category { return o.cat }
func (o *thing) Position() Point    { return o.pos }
func (o *thing) Blocking() bool     { return o.blocking }
func (o *thing) Dead() bool         { return o.dead }

func (o *thing) Despawn() {
	o.despawned = true
	if o.m != nil {
		o.m.Leave(o)
	}
}

func (o *thing) Destroy() {
	o.destroyed = true
	if o.m != nil {
		o.m.Leave(o)
	}
}

func (o *thing) Recall() {
	o.recalled = true
	if o.m != nil {
		o.m.Leave(o)
	}
}

type testPlayer struct {
	thing
	respawnMap int

	mu          sync.Mutex
	outbox      []packet.Outbound
	resurrected int
	teleportTo  *Map
	teleportVia AreaType
}

func newTestPlayer(id int32, p Point, m *Map) *testPlayer {
	return &testPlayer{thing: thing{id: id, cat: CategoryPlayer, pos: p, blocking: true, m: m}}
}

func (p *testPlayer) Enqueue(o packet.Outbound) {
	p.mu.Lock()
	p.outbox = append(p.outbox, o)
	p.mu.Unlock()
}

func (p *testPlayer) Resurrect() {
	p.resurrected++
	p.dead = false
}

func (p *testPlayer) Teleport(target *Map, area AreaType) {
	p.teleportTo = target
	p.teleportVia = area
	if p.m != nil {
		p.m.Leave(p)
	}
}

func (p *testPlayer) RespawnMapID() int { return p.respawnMap }

// texts decodes the announcement text of every queued system message.
func (p *testPlayer) texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, o := range p.outbox {
		msg, ok := o.(*packet.SystemMessage)
		if !ok {
			continue
		}
		text, err := packet.DecodeSystemMessage(msg.Bytes())
		if err != nil {
			continue
		}
		out = append(out, text)
	}
	return out
}
