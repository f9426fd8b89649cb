package geo

import (
	"strconv"
	"strings"
)

// Resolution tiers, most to least precise.
const (
	TierExact    = "exact"
	TierPrefix   = "prefix"
	TierState    = "state"
	TierNational = "national"
)

// NationalCentroid is the geographic center of the contiguous United States.
// It is the terminal fallback of the resolver, so resolution always succeeds.
var NationalCentroid = Coordinate{Lat: 39.8283, Lon: -98.5795}

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Point is one geocoded reference record the resolver indexes.
type Point struct {
	Zip   string
	State string
	Coord Coordinate
}

// Resolver maps ZIP codes to coordinates using a tiered lookup over a fixed
// in-memory dataset. No network calls; results are deterministic for a given
// dataset and input.
//
// Tiers, in order:
//  1. exact ZIP match
//  2. 3-digit ZIP prefix match (same postal region)
//  3. centroid of the dataset's points in the state inferred from the prefix
//  4. national centroid
type Resolver struct {
	byZip    map[string]Coordinate
	byPrefix map[string]Coordinate
	byState  map[string]Coordinate
}

// NewResolver indexes the given points. When several points share a ZIP or a
// prefix, the first one encountered wins; the order carries no meaning but is
// stable for a fixed dataset.
func NewResolver(points []Point) *Resolver {
	r := &Resolver{
		byZip:    make(map[string]Coordinate, len(points)),
		byPrefix: make(map[string]Coordinate),
		byState:  make(map[string]Coordinate),
	}

	type acc struct {
		lat, lon float64
		n        int
	}
	stateAcc := make(map[string]*acc)

	for _, p := range points {
		zip := strings.TrimSpace(p.Zip)
		if zip == "" {
			continue
		}
		if _, ok := r.byZip[zip]; !ok {
			r.byZip[zip] = p.Coord
		}
		if len(zip) >= 3 {
			prefix := zip[:3]
			if _, ok := r.byPrefix[prefix]; !ok {
				r.byPrefix[prefix] = p.Coord
			}
		}
		state := strings.ToUpper(strings.TrimSpace(p.State))
		if state != "" {
			a := stateAcc[state]
			if a == nil {
				a = &acc{}
				stateAcc[state] = a
			}
			a.lat += p.Coord.Lat
			a.lon += p.Coord.Lon
			a.n++
		}
	}

	for state, a := range stateAcc {
		r.byState[state] = Coordinate{Lat: a.lat / float64(a.n), Lon: a.lon / float64(a.n)}
	}
	return r
}

// Resolve maps a ZIP code to a coordinate and reports which tier produced it.
// It never fails: unresolvable input lands on the national centroid.
func (r *Resolver) Resolve(zip string) (Coordinate, string) {
	zip = strings.TrimSpace(zip)

	if c, ok := r.byZip[zip]; ok {
		return c, TierExact
	}
	if len(zip) >= 3 {
		if c, ok := r.byPrefix[zip[:3]]; ok {
			return c, TierPrefix
		}
		if state := StateForZip(zip); state != "" {
			if c, ok := r.byState[state]; ok {
				return c, TierState
			}
		}
	}
	return NationalCentroid, TierNational
}

// ValidZip reports whether s is a well-formed 5-digit ZIP code.
func ValidZip(s string) bool {
	if len(s) != 5 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// zipRange maps an inclusive 3-digit prefix range to a state.
type zipRange struct {
	lo, hi int
	state  string
}

// USPS 3-digit prefix allocations. Military and territory prefixes are
// omitted; unmatched prefixes resolve to the national centroid instead.
var zipRanges = []zipRange{
	{5, 5, "NY"},
	{10, 27, "MA"},
	{28, 29, "RI"},
	{30, 38, "NH"},
	{39, 49, "ME"},
	{50, 59, "VT"},
	{60, 69, "CT"},
	{70, 89, "NJ"},
	{100, 149, "NY"},
	{150, 196, "PA"},
	{197, 199, "DE"},
	{200, 205, "DC"},
	{206, 219, "MD"},
	{220, 246, "VA"},
	{247, 268, "WV"},
	{270, 289, "NC"},
	{290, 299, "SC"},
	{300, 319, "GA"},
	{320, 349, "FL"},
	{350, 369, "AL"},
	{370, 385, "TN"},
	{386, 397, "MS"},
	{398, 399, "GA"},
	{400, 427, "KY"},
	{430, 459, "OH"},
	{460, 479, "IN"},
	{480, 499, "MI"},
	{500, 528, "IA"},
	{530, 549, "WI"},
	{550, 567, "MN"},
	{570, 577, "SD"},
	{580, 588, "ND"},
	{590, 599, "MT"},
	{600, 629, "IL"},
	{630, 658, "MO"},
	{660, 679, "KS"},
	{680, 693, "NE"},
	{700, 714, "LA"},
	{716, 729, "AR"},
	{730, 749, "OK"},
	{750, 799, "TX"},
	{800, 816, "CO"},
	{820, 831, "WY"},
	{832, 838, "ID"},
	{840, 847, "UT"},
	{850, 865, "AZ"},
	{870, 884, "NM"},
	{885, 885, "TX"},
	{889, 898, "NV"},
	{900, 961, "CA"},
	{967, 968, "HI"},
	{970, 979, "OR"},
	{980, 994, "WA"},
	{995, 999, "AK"},
}

// StateForZip infers the two-letter state code from a ZIP's 3-digit prefix.
// Returns "" when the prefix is unallocated or the input is malformed.
func StateForZip(zip string) string {
	if len(zip) < 3 {
		return ""
	}
	prefix, err := strconv.Atoi(zip[:3])
	if err != nil {
		return ""
	}
	for _, zr := range zipRanges {
		if prefix >= zr.lo && prefix <= zr.hi {
			return zr.state
		}
	}
	return ""
}
