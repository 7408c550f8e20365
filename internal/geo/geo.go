package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Local XY frames are tangent planes anchored at a WGS84 origin. Conversions go
// through web mercator (EPSG:3857), scaled by the secant of the origin latitude
// so that one local unit is one metre on the ground near the origin.

// ErrInvalidPoint is returned when a point string cannot be parsed
var ErrInvalidPoint = errors.New("invalid point provided")

// LonLat is a WGS84 position in degrees
type LonLat struct {
	Lon float64
	Lat float64
}

// ParseXY parses a string in the format "x,y" into a point
func ParseXY(s string) (geom.XY, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geom.XY{}, ErrInvalidPoint
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geom.XY{}, ErrInvalidPoint
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geom.XY{}, ErrInvalidPoint
	}
	return geom.XY{X: x, Y: y}, nil
}

// LocalXYToWGS84 converts a point in the local XY frame anchored at origin to WGS84.
func LocalXYToWGS84(origin LonLat, p geom.XY) LonLat {
	epsg := wgs84.EPSG()
	toMercator := epsg.Transform(4326, 3857)
	fromMercator := epsg.Transform(3857, 4326)

	ox, oy, _ := toMercator(origin.Lon, origin.Lat, 0)
	k := mercatorScale(origin.Lat)
	lon, lat, _ := fromMercator(ox+p.X*k, oy+p.Y*k, 0)
	return LonLat{Lon: lon, Lat: lat}
}

// WGS84ToLocalXY converts a WGS84 position to the local XY frame anchored at origin.
func WGS84ToLocalXY(origin LonLat, pos LonLat) geom.XY {
	toMercator := wgs84.EPSG().Transform(4326, 3857)

	ox, oy, _ := toMercator(origin.Lon, origin.Lat, 0)
	px, py, _ := toMercator(pos.Lon, pos.Lat, 0)
	k := mercatorScale(origin.Lat)
	return geom.XY{X: (px - ox) / k, Y: (py - oy) / k}
}

func mercatorScale(latDeg float64) float64 {
	return 1 / math.Cos(latDeg*math.Pi/180)
}
