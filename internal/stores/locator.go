package stores

import (
	"math"
	"sort"

	"dealradar/internal/geo"
	"dealradar/internal/model"
)

const earthRadiusMiles = 3959

// Distance returns the haversine great-circle distance between two
// coordinates, in miles.
func Distance(a, b geo.Coordinate) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

type ranked struct {
	id   string
	dist float64
}

// eligible keeps active locations with resolved coordinates.
func eligible(locs []model.StoreLocation) []model.StoreLocation {
	out := make([]model.StoreLocation, 0, len(locs))
	for _, l := range locs {
		if l.Active && l.Geocoded() {
			out = append(out, l)
		}
	}
	return out
}

func rankByDistance(origin geo.Coordinate, locs []model.StoreLocation) []ranked {
	rs := make([]ranked, 0, len(locs))
	for _, l := range eligible(locs) {
		c := geo.Coordinate{Lat: *l.Latitude, Lon: *l.Longitude}
		rs = append(rs, ranked{id: l.ID, dist: Distance(origin, c)})
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].dist < rs[j].dist })
	return rs
}

// SelectNearest returns the ids of the limit closest eligible locations,
// sorted by ascending distance from origin. Fewer than limit eligible
// locations is not an error; all that qualify are returned.
func SelectNearest(origin geo.Coordinate, locs []model.StoreLocation, limit int) []string {
	if limit <= 0 {
		return []string{}
	}
	rs := rankByDistance(origin, locs)
	if len(rs) > limit {
		rs = rs[:limit]
	}
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.id
	}
	return ids
}

// SelectWithinRadius returns the ids of all eligible locations within
// radiusMiles of origin, sorted by ascending distance. An empty result is a
// valid outcome.
func SelectWithinRadius(origin geo.Coordinate, locs []model.StoreLocation, radiusMiles float64) []string {
	ids := []string{}
	for _, r := range rankByDistance(origin, locs) {
		if r.dist <= radiusMiles {
			ids = append(ids, r.id)
		}
	}
	return ids
}

// RadiusFor reports the fixed selection radius for radius-based retailers.
// Retailers not listed here use plan-limited nearest-N selection instead.
func RadiusFor(retailer string) (float64, bool) {
	switch retailer {
	case "ace-hardware":
		return 50, true
	default:
		return 0, false
	}
}
