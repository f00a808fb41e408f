package geometry

import (
	"math"
	"testing"
)

func regular(n int, clockwise bool) []Point {
	points := make([]Point, n)
	for i := range points {
		angle := 2 * math.Pi * float64(i) / float64(n)
		if clockwise {
			angle = -angle
		}
		points[i] = Point{X: math.Cos(angle), Y: math.Sin(angle)}
	}
	return points
}

func TestIsConvexSquare(t *testing.T) {
	square := []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	if !IsConvex(square) {
		t.Fatalf("square must be convex")
	}
	reversed := []Point{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	if !IsConvex(reversed) {
		t.Fatalf("clockwise square must be convex")
	}
}

func TestIsConvexRegularPolygons(t *testing.T) {
	for n := 3; n <= 12; n++ {
		if !IsConvex(regular(n, false)) {
			t.Fatalf("regular %d-gon must be convex", n)
		}
		if !IsConvex(regular(n, true)) {
			t.Fatalf("clockwise regular %d-gon must be convex", n)
		}
	}
}

func TestIsConvexRejectsBowtie(t *testing.T) {
	bowtie := []Point{{0, 0}, {1, 1}, {1, 0}, {0, 1}}
	if IsConvex(bowtie) {
		t.Fatalf("self-intersecting bowtie must be rejected")
	}
}

func TestIsConvexRejectsConcave(t *testing.T) {
	arrow := []Point{{0, 0}, {2, 0}, {2, 2}, {1, 1}, {0, 2}}
	if IsConvex(arrow) {
		t.Fatalf("concave arrow must be rejected")
	}
}

func TestIsConvexAllowsCollinearVertices(t *testing.T) {
	points := []Point{{0, 0}, {0.5, 0}, {1, 0}, {1, 1}, {0, 1}}
	if !IsConvex(points) {
		t.Fatalf("collinear vertices must not reject a convex polygon")
	}
}

// The reflex turn at (1,1) is followed by a collinear vertex. A check that
// only looks for negative-to-positive flips against the immediately
// preceding cross product accepts this polygon; it is concave.
func TestIsConvexRejectsFlipAcrossCollinearVertex(t *testing.T) {
	points := []Point{{0, 0}, {2, 0}, {2, 2}, {1, 1}, {0.5, 1.5}, {0, 2}}
	if IsConvex(points) {
		t.Fatalf("concave polygon with collinear reflex vertex must be rejected")
	}
}

func TestIsConvexTooFewPoints(t *testing.T) {
	if IsConvex(nil) {
		t.Fatalf("empty polygon must not be convex")
	}
	if IsConvex([]Point{{0, 0}, {1, 1}}) {
		t.Fatalf("two points must not be convex")
	}
}

func TestPolygonMethod(t *testing.T) {
	p := Polygon{{0, 0}, {1, 0}, {0, 1}}
	if !p.IsConvex() {
		t.Fatalf("triangle must be convex")
	}
}
