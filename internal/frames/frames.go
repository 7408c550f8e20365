// Package frames keeps track of the coordinate frames a pose can be published in.
package frames

import (
	"errors"
	"sort"
	"sync"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/mapviz-go/posepublisher/internal/config"
	"github.com/mapviz-go/posepublisher/internal/geo"
)

// Frame names with special meaning.
const (
	LocalXYFrame = "/far_field"
	WGS84Frame   = "/wgs84"
)

// ErrNoOrigin is returned by the WGS84 conversions when no local XY origin is set.
var ErrNoOrigin = errors.New("local xy origin not set")

// Registry is a thread-safe frame source. Static frames come first in
// configuration order, followed by frames observed on the transform stream in
// sorted order.
type Registry struct {
	mu       sync.RWMutex
	static   []string
	observed map[string]struct{}
	origin   *geo.LonLat
}

// NewRegistry creates a registry seeded with static frame names. Names keep
// their configured spelling; "map" and "/map" are the same frame.
func NewRegistry(static ...string) *Registry {
	r := &Registry{observed: make(map[string]struct{})}
	seen := make(map[string]struct{})
	for _, name := range static {
		if name == "" {
			continue
		}
		if _, dup := seen[normalize(name)]; dup {
			continue
		}
		seen[normalize(name)] = struct{}{}
		r.static = append(r.static, name)
	}
	return r
}

// FromConfig builds a registry from the frames section.
func FromConfig(cfg config.FramesConfig) *Registry {
	r := NewRegistry(cfg.Known...)
	if cfg.LocalXYOrigin.Enabled {
		r.SetOrigin(geo.LonLat{Lon: cfg.LocalXYOrigin.Longitude, Lat: cfg.LocalXYOrigin.Latitude})
	}
	return r
}

// SetOrigin anchors the local XY frame at origin.
func (r *Registry) SetOrigin(origin geo.LonLat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.origin = &origin
}

// Origin returns the local XY anchor, if one is set.
func (r *Registry) Origin() (geo.LonLat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.origin == nil {
		return geo.LonLat{}, false
	}
	return *r.origin, true
}

// Observe records frame names seen on the transform stream. It is safe to
// call from any goroutine.
func (r *Registry) Observe(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if name == "" {
			continue
		}
		r.observed[normalize(name)] = struct{}{}
	}
}

// KnownFrameNames returns all frames the registry knows about.
func (r *Registry) KnownFrameNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.static)+len(r.observed))
	out = append(out, r.static...)

	var extra []string
	for name := range r.observed {
		if !r.isStatic(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// SupportsTransform reports whether poses can be converted from source to target.
func (r *Registry) SupportsTransform(source, target string) bool {
	if source == "" || target == "" {
		return false
	}
	source, target = normalize(source), normalize(target)
	if source == target {
		return true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.origin != nil && isGeoPair(source, target) {
		return true
	}
	return r.known(source) && r.known(target)
}

// ToWGS84 converts a point in the local XY frame to WGS84.
func (r *Registry) ToWGS84(p geom.XY) (geo.LonLat, error) {
	origin, ok := r.Origin()
	if !ok {
		return geo.LonLat{}, ErrNoOrigin
	}
	return geo.LocalXYToWGS84(origin, p), nil
}

// FromWGS84 converts a WGS84 position to the local XY frame.
func (r *Registry) FromWGS84(pos geo.LonLat) (geom.XY, error) {
	origin, ok := r.Origin()
	if !ok {
		return geom.XY{}, ErrNoOrigin
	}
	return geo.WGS84ToLocalXY(origin, pos), nil
}

// isStatic and known expect a normalized name.
func (r *Registry) isStatic(name string) bool {
	for _, s := range r.static {
		if normalize(s) == name {
			return true
		}
	}
	return false
}

func (r *Registry) known(name string) bool {
	if r.isStatic(name) {
		return true
	}
	_, ok := r.observed[name]
	return ok
}

func isGeoPair(a, b string) bool {
	return (a == LocalXYFrame && b == WGS84Frame) || (a == WGS84Frame && b == LocalXYFrame)
}

// normalize gives a frame id a leading slash.
func normalize(name string) string {
	if name != "" && name[0] != '/' {
		return "/" + name
	}
	return name
}
