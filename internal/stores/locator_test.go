package stores

import (
	"math"
	"testing"

	"dealradar/internal/geo"
	"dealradar/internal/model"
)

func loc(id string, lat, lon float64, active bool) model.StoreLocation {
	return model.StoreLocation{
		ID:        id,
		Retailer:  "home-depot",
		Latitude:  &lat,
		Longitude: &lon,
		Active:    active,
	}
}

func TestDistanceSymmetry(t *testing.T) {
	pairs := [][2]geo.Coordinate{
		{{Lat: 34.0430, Lon: -118.2673}, {Lat: 40.7506, Lon: -73.9972}},
		{{Lat: 0, Lon: 0}, {Lat: -33.8688, Lon: 151.2093}},
		{{Lat: 89.9, Lon: 10}, {Lat: -89.9, Lon: -170}},
	}
	for _, p := range pairs {
		ab := Distance(p[0], p[1])
		ba := Distance(p[1], p[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("Distance(%v,%v)=%f but reversed=%f", p[0], p[1], ab, ba)
		}
	}
}

func TestDistanceIdentity(t *testing.T) {
	for _, c := range []geo.Coordinate{{Lat: 34.0430, Lon: -118.2673}, {Lat: 0, Lon: 0}, {Lat: -45, Lon: 120}} {
		if d := Distance(c, c); d != 0 {
			t.Errorf("Distance(%v,%v) = %f, want 0", c, c, d)
		}
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// LA to NYC is roughly 2,450 miles.
	la := geo.Coordinate{Lat: 34.0430, Lon: -118.2673}
	nyc := geo.Coordinate{Lat: 40.7506, Lon: -73.9972}
	d := Distance(la, nyc)
	if d < 2400 || d > 2500 {
		t.Fatalf("LA-NYC distance = %f, want ~2450", d)
	}
}

func TestSelectNearestMonotonic(t *testing.T) {
	origin := geo.Coordinate{Lat: 34.0430, Lon: -118.2673}
	locs := []model.StoreLocation{
		loc("far", 40.7506, -73.9972, true),
		loc("near", 34.0466, -118.2585, true),
		loc("mid", 34.1561, -118.2459, true),
		loc("inactive", 34.0440, -118.2670, false),
	}

	for k := 0; k <= 5; k++ {
		ids := SelectNearest(origin, locs, k)
		eligibleCount := 3
		want := k
		if want > eligibleCount {
			want = eligibleCount
		}
		if len(ids) != want {
			t.Fatalf("k=%d: got %d ids, want %d", k, len(ids), want)
		}
		// Non-decreasing distance order.
		prev := -1.0
		for _, id := range ids {
			var c geo.Coordinate
			for _, l := range locs {
				if l.ID == id {
					c = geo.Coordinate{Lat: *l.Latitude, Lon: *l.Longitude}
				}
			}
			d := Distance(origin, c)
			if d < prev {
				t.Fatalf("k=%d: ids not sorted by distance", k)
			}
			prev = d
		}
	}
}

func TestSelectNearestSkipsUngeocoded(t *testing.T) {
	origin := geo.Coordinate{Lat: 34.0430, Lon: -118.2673}
	locs := []model.StoreLocation{
		{ID: "no-coords", Active: true},
		loc("geocoded", 34.0466, -118.2585, true),
	}
	ids := SelectNearest(origin, locs, 5)
	if len(ids) != 1 || ids[0] != "geocoded" {
		t.Fatalf("got %v, want [geocoded]", ids)
	}
}

func TestSelectWithinRadiusCorrectness(t *testing.T) {
	origin := geo.Coordinate{Lat: 34.0430, Lon: -118.2673}
	locs := []model.StoreLocation{
		loc("downtown", 34.0496, -118.2449, true),
		loc("pasadena", 34.1692, -118.1310, true),
		loc("santa-barbara", 34.4394, -119.7432, true),
		loc("san-diego", 32.7120, -117.1600, true),
		loc("closed-near", 33.7701, -118.1937, false),
	}

	ids := SelectWithinRadius(origin, locs, 50)

	inResult := make(map[string]bool, len(ids))
	for _, id := range ids {
		inResult[id] = true
	}
	for _, l := range locs {
		if !l.Active || !l.Geocoded() {
			if inResult[l.ID] {
				t.Errorf("ineligible %s selected", l.ID)
			}
			continue
		}
		d := Distance(origin, geo.Coordinate{Lat: *l.Latitude, Lon: *l.Longitude})
		if d <= 50 && !inResult[l.ID] {
			t.Errorf("%s at %.1f mi missing from result", l.ID, d)
		}
		if d > 50 && inResult[l.ID] {
			t.Errorf("%s at %.1f mi should be outside radius", l.ID, d)
		}
	}
}

func TestSelectWithinRadiusEmpty(t *testing.T) {
	origin := geo.Coordinate{Lat: 64.8378, Lon: -147.7164} // Fairbanks
	locs := []model.StoreLocation{
		loc("la", 34.0496, -118.2449, true),
	}
	ids := SelectWithinRadius(origin, locs, 50)
	if ids == nil || len(ids) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", ids)
	}
}

// Scenario: free-plan user in downtown LA gets exactly the nearest store.
func TestNearestAgainstSeedDataset(t *testing.T) {
	dataset := Seed()
	resolver := geo.NewResolver(GeoPoints(dataset))
	origin, _ := resolver.Resolve("90017")

	var hd []model.StoreLocation
	for _, l := range dataset {
		if l.Retailer == "home-depot" {
			hd = append(hd, l)
		}
	}

	ids := SelectNearest(origin, hd, 1)
	if len(ids) != 1 {
		t.Fatalf("got %d ids, want 1", len(ids))
	}
	if ids[0] != "hd-0206" {
		t.Fatalf("nearest = %s, want hd-0206", ids[0])
	}
}

// Scenario: Ace Hardware selection covers every active store within 50 miles.
func TestRadiusAgainstSeedDataset(t *testing.T) {
	dataset := Seed()
	resolver := geo.NewResolver(GeoPoints(dataset))
	origin, _ := resolver.Resolve("90017")

	var ace []model.StoreLocation
	for _, l := range dataset {
		if l.Retailer == "ace-hardware" {
			ace = append(ace, l)
		}
	}

	ids := SelectWithinRadius(origin, ace, 50)
	want := map[string]bool{
		"ace-90012": true,
		"ace-90026": true,
		"ace-91104": true,
		"ace-90254": true,
	}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want the 4 LA-area stores", ids)
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("unexpected store %s in radius result", id)
		}
	}
}

func TestRadiusFor(t *testing.T) {
	if r, ok := RadiusFor("ace-hardware"); !ok || r != 50 {
		t.Fatalf("RadiusFor(ace-hardware) = %f,%v", r, ok)
	}
	if _, ok := RadiusFor("home-depot"); ok {
		t.Fatal("home-depot should not be radius-based")
	}
}
