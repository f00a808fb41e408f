// Package geometry validates the zone polygons of a sensor declaration.
package geometry

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a vertex in sensor coordinates, in meters.
type Point struct {
	X float64
	Y float64
}

func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Polygon is an ordered, implicitly closed vertex list.
type Polygon []Point

// IsConvex reports whether the polygon is convex and does not self-intersect
// by winding. Consecutive turn directions must never change sign; collinear
// vertices (zero cross product) are allowed and do not reset the winding.
// Polygons with fewer than three points are never convex.
func IsConvex(points []Point) bool {
	n := len(points)
	if n < 3 {
		return false
	}
	var last float64
	for i := 0; i <= n; i++ {
		cross := turn(points[i%n], points[(i+1)%n], points[(i+2)%n])
		if cross == 0 {
			continue
		}
		if (cross > 0 && last < 0) || (cross < 0 && last > 0) {
			return false
		}
		last = cross
	}
	return true
}

// IsConvex reports whether the polygon is convex.
func (p Polygon) IsConvex() bool {
	return IsConvex(p)
}

// turn is the z component of (b-a) x (c-b).
func turn(a, b, c Point) float64 {
	return r2.Cross(r2.Sub(b.vec(), a.vec()), r2.Sub(c.vec(), b.vec()))
}
