package geo

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ArrowShape is the pose arrow in arrow space: tail at the origin, pointing
// along +X.
var ArrowShape = []geom.XY{
	{X: 10, Y: 0},
	{X: 6, Y: -2.5},
	{X: 6.5, Y: -1},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: 6.5, Y: 1},
	{X: 6, Y: 2.5},
}

// Transform scales points about the origin, rotates them by yaw radians and
// translates them to origin.
func Transform(points []geom.XY, scale, yaw float64, origin geom.XY) []geom.XY {
	sin, cos := math.Sincos(yaw)
	out := make([]geom.XY, len(points))
	for i, p := range points {
		x, y := p.X*scale, p.Y*scale
		out[i] = geom.XY{
			X: x*cos - y*sin + origin.X,
			Y: x*sin + y*cos + origin.Y,
		}
	}
	return out
}

// Arrow returns the arrow outline for a pose at tail facing yaw.
func Arrow(scale, yaw float64, tail geom.XY) []geom.XY {
	return Transform(ArrowShape, scale, yaw, tail)
}

// Ring closes points into a linear ring.
func Ring(points []geom.XY) geom.LineString {
	if len(points) == 0 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, (len(points)+1)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	flat = append(flat, points[0].X, points[0].Y)
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// RingPoints returns the vertices of a ring without the closing vertex.
func RingPoints(ring geom.LineString) []geom.XY {
	seq := ring.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil
	}
	points := make([]geom.XY, 0, n-1)
	for i := 0; i < n-1; i++ {
		points = append(points, seq.Get(i).XY)
	}
	return points
}

// ArrowRing transforms points and closes them into a ring.
func ArrowRing(points []geom.XY, scale, yaw float64, origin geom.XY) geom.LineString {
	return Ring(Transform(points, scale, yaw, origin))
}
