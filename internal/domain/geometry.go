package domain

import "errors"

// ErrParallel is returned by Intersect when the two lines never cross at a single point.
var ErrParallel = errors.New("lines are parallel or degenerate")

// Point is a 2-D coordinate.
type Point struct {
	X float64
	Y float64
}

// Intersect returns the crossing point of the line through a and b with the line
// through c and d.
func Intersect(a, b, c, d Point) (Point, error) {
	det := (a.X-b.X)*(c.Y-d.Y) - (a.Y-b.Y)*(c.X-d.X)
	if det == 0 {
		return Point{}, ErrParallel
	}
	l := a.X*b.Y - a.Y*b.X
	m := c.X*d.Y - c.Y*d.X
	return Point{
		X: (l*(c.X-d.X) - m*(a.X-b.X)) / det,
		Y: (l*(c.Y-d.Y) - m*(a.Y-b.Y)) / det,
	}, nil
}
