package world

// Placement search attempt budgets.
const (
	DefaultPlacementAttempts = 120
	spawnJitter              = 5
)

// edgeMargin keeps full-map random picks away from the borders.
// Callers draw it once per search.
func (m *Map) edgeMargin() int {
	size := (m.terrain.Width() + m.terrain.Height()) / 2
	switch {
	case size < 50:
		return 2
	case size < 250:
		return 10
	default:
		return between(m.deps.Rand, 10, 30)
	}
}

// GetRandomXY tests p and, while CanMove fails, retries at a fresh jitter
// around the original p, for at most attempts tries. Retries never drift
// further than distance from the start. On failure p keeps its last tried value.
func (m *Map) GetRandomXY(attempts, distance int, p *Point) bool {
	anchor := *p
	edge := -1 // full-map margin, drawn on first use
	for i := 0; i < attempts; i++ {
		if m.CanMove(*p) {
			return true
		}
		if distance <= 0 && edge < 0 {
			edge = m.edgeMargin()
		}
		*p = anchor
		m.jitter(distance, edge, p)
	}
	return false
}

// jitter moves p by up to distance on each axis, or to a random interior
// point at least edge from the borders when distance is 0, then clamps it
// into the map.
func (m *Map) jitter(distance, edge int, p *Point) {
	start, end := m.terrain.Start(), m.terrain.End()
	if distance > 0 {
		p.X += between(m.deps.Rand, -distance, distance+1)
		p.Y += between(m.deps.Rand, -distance, distance+1)
	} else {
		p.X = m.randomAxis(start.X, end.X, edge)
		p.Y = m.randomAxis(start.Y, end.Y, edge)
	}
	p.X = clamp(p.X, start.X, end.X-1)
	p.Y = clamp(p.Y, start.Y, end.Y-1)
}

// randomAxis draws from [lo+edge, hi-edge); maps too narrow for the margin
// use their center line.
func (m *Map) randomAxis(lo, hi, edge int) int {
	a, b := lo+edge, hi-edge
	if b-a < 1 {
		return lo + (hi-lo)/2
	}
	return between(m.deps.Rand, a, b)
}

// GetNearXY scans from p in fixed strides: along X first, then wrapping to a
// random column and stepping Y. At the bottom edge Y is re-randomized.
func (m *Map) GetNearXY(attempts int, p *Point) bool {
	w, h := m.terrain.Width(), m.terrain.Height()
	start := m.terrain.Start()

	step := 6
	if (w+h)/2 < 80 {
		step = 3
	}
	edge := m.edgeMargin()

	for i := 0; i < attempts; i++ {
		if m.CanMove(*p) {
			return true
		}
		if p.X-start.X < w-edge-1 {
			p.X += step
			continue
		}
		p.X = start.X + m.deps.Rand.Intn(w)
		if p.Y-start.Y < h-edge-1 {
			p.Y += step
		} else {
			p.Y = start.Y + m.deps.Rand.Intn(h)
		}
	}
	return false
}

// GetRandomPosition picks a walkable point inside the zone of type t.
// Returns the zero Point when the zone is missing or no point was found.
func (m *Map) GetRandomPosition(t AreaType) Point {
	a := m.areas.Get(t)
	if a == nil {
		return Point{}
	}
	p := a.Center
	if m.GetRandomXY(DefaultPlacementAttempts, a.Radius, &p) {
		return p
	}
	return Point{}
}

// GetRandomTeleportPosition picks a walkable point in the random zone that
// contains p. Zones are tried in declaration order.
func (m *Map) GetRandomTeleportPosition(p Point) Point {
	for _, a := range m.areas.RandomAreasAt(p) {
		pos := a.Center
		if m.GetRandomXY(DefaultPlacementAttempts, a.Radius, &pos) {
			return pos
		}
	}
	return Point{}
}

// IsInArea reports whether p lies in the zone of type t.
func (m *Map) IsInArea(p Point, t AreaType) bool {
	a := m.areas.Get(t)
	return a != nil && a.Contains(p)
}

// GetArea resolves a zone by type, nil if the map has none.
func (m *Map) GetArea(t AreaType) *Area {
	return m.areas.Get(t)
}
