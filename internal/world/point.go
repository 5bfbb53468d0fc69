package world

// Point is a map cell coordinate in absolute world units.
type Point struct {
	X, Y int
}

// IsZero reports whether p is the empty point returned by failed searches.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Distance returns the Chebyshev distance between p and o.
func (p Point) Distance(o Point) int {
	dx := abs(p.X - o.X)
	dy := abs(p.Y - o.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// InRange reports whether o lies within r cells of p on both axes.
func (p Point) InRange(o Point, r int) bool {
	return abs(p.X-o.X) <= r && abs(p.Y-o.Y) <= r
}

// FrontPosition returns the point step cells along the straight line from
// from to to. step 0 is from; step >= Distance is to.
func FrontPosition(from, to Point, step int) Point {
	d := from.Distance(to)
	if d == 0 || step <= 0 {
		return from
	}
	if step >= d {
		return to
	}
	return Point{
		X: from.X + roundDiv((to.X-from.X)*step, d),
		Y: from.Y + roundDiv((to.Y-from.Y)*step, d),
	}
}

func roundDiv(a, b int) int {
	if a >= 0 {
		return (a + b/2) / b
	}
	return -((-a + b/2) / b)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
