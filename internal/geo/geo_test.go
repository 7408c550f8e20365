package geo

import (
	"errors"
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseXY_Valid(t *testing.T) {
	p, err := ParseXY("1.5, -2.25")
	require.NoError(t, err)
	assert.Equal(t, geom.XY{X: 1.5, Y: -2.25}, p)
}

func TestParseXY_Invalid(t *testing.T) {
	for _, in := range []string{"", "1", "1,2,3", "a,2", "1,b"} {
		_, err := ParseXY(in)
		if !errors.Is(err, ErrInvalidPoint) {
			t.Errorf("ParseXY(%q): expected ErrInvalidPoint, got %v", in, err)
		}
	}
}

func TestLocalXYToWGS84_OriginMapsToOrigin(t *testing.T) {
	origin := LonLat{Lon: -98.5, Lat: 29.4}
	got := LocalXYToWGS84(origin, geom.XY{})

	assert.InDelta(t, origin.Lon, got.Lon, 1e-9)
	assert.InDelta(t, origin.Lat, got.Lat, 1e-9)
}

func TestLocalXYToWGS84_EastAtEquator(t *testing.T) {
	got := LocalXYToWGS84(LonLat{}, geom.XY{X: 1000})

	// one kilometre along the equator on the WGS84 ellipsoid
	expected := 1000 / 6378137.0 * 180 / math.Pi
	assert.InDelta(t, expected, got.Lon, 1e-6)
	assert.InDelta(t, 0, got.Lat, 1e-9)
}

func TestLocalXY_RoundTrip(t *testing.T) {
	origin := LonLat{Lon: 11.57, Lat: 48.13}
	for _, p := range []geom.XY{{X: 10, Y: 20}, {X: -250, Y: 75.5}, {X: 0, Y: -1000}} {
		ll := LocalXYToWGS84(origin, p)
		back := WGS84ToLocalXY(origin, ll)
		assert.InDelta(t, p.X, back.X, 1e-6)
		assert.InDelta(t, p.Y, back.Y, 1e-6)
	}
}

func TestTransform_IdentityKeepsShape(t *testing.T) {
	got := Transform(ArrowShape, 1, 0, geom.XY{})
	assert.Equal(t, ArrowShape, got)
}

func TestArrow_RotatesAboutTail(t *testing.T) {
	tail := geom.XY{X: 5, Y: -3}
	got := Arrow(2, math.Pi/2, tail)

	require.Len(t, got, len(ArrowShape))
	// the tip (10, 0) scaled by 2 and turned a quarter ends up straight above the tail
	assert.InDelta(t, 5, got[0].X, 1e-9)
	assert.InDelta(t, 17, got[0].Y, 1e-9)
	// (0, -1) scaled and turned a quarter ends up two units right of the tail
	assert.InDelta(t, 7, got[3].X, 1e-9)
	assert.InDelta(t, -3, got[3].Y, 1e-9)
}

func TestRing_ClosesAndRoundTrips(t *testing.T) {
	ring := Ring(ArrowShape)

	seq := ring.Coordinates()
	require.Equal(t, len(ArrowShape)+1, seq.Length())
	assert.Equal(t, seq.Get(0).XY, seq.Get(seq.Length()-1).XY)
	assert.Equal(t, ArrowShape, RingPoints(ring))
}

func TestRing_Empty(t *testing.T) {
	assert.Nil(t, RingPoints(Ring(nil)))
}

func TestArrowRing_ClosedAtTail(t *testing.T) {
	tail := geom.XY{X: 1, Y: 2}
	ring := ArrowRing(ArrowShape, 10, 0, tail)

	assert.True(t, ring.IsClosed())
	points := RingPoints(ring)
	require.Len(t, points, len(ArrowShape))
	assert.Equal(t, geom.XY{X: 101, Y: 2}, points[0])
	assert.Equal(t, geom.XY{X: 1, Y: -8}, points[3])
}
