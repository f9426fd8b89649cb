package stores

import (
	"dealradar/internal/geo"
	"dealradar/internal/model"
)

func coord(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

// Seed returns the static location dataset loaded at process start.
//
// Covers the greater Los Angeles pilot market plus a few out-of-area
// locations. Locations without coordinates are picked up later by the
// coordinate backfill job.
func Seed() []model.StoreLocation {
	type row struct {
		id, retailer, address, city, state, zip, phone, hours string
		lat, lon                                              float64
		geocoded                                              bool
		active                                                bool
	}

	rows := []row{
		{"hd-0206", "home-depot", "2055 N Figueroa St", "Los Angeles", "CA", "90065", "(323) 223-1184", "6am-10pm", 34.0466, -118.2585, true, true},
		{"hd-1036", "home-depot", "5600 Sunset Blvd", "Hollywood", "CA", "90028", "(323) 461-3303", "6am-10pm", 34.0983, -118.3267, true, true},
		{"hd-0602", "home-depot", "5040 San Fernando Rd", "Glendale", "CA", "91204", "(818) 240-1951", "6am-10pm", 34.1561, -118.2459, true, true},
		{"hd-6627", "home-depot", "3500 E Colorado Blvd", "Pasadena", "CA", "91107", "(626) 440-0145", "6am-10pm", 34.1478, -118.1445, true, true},
		{"hd-0661", "home-depot", "1675 Wilshire Blvd", "Monterey Park", "CA", "91754", "(323) 881-0601", "6am-10pm", 34.0511, -118.1470, true, true},
		{"hd-6602", "home-depot", "1200 Flower St", "Burbank", "CA", "91502", "(818) 557-6840", "6am-10pm", 34.1808, -118.3090, true, true},
		{"hd-0623", "home-depot", "2115 Artesia Blvd", "Torrance", "CA", "90504", "(310) 323-2494", "6am-9pm", 33.8715, -118.3270, true, true},
		{"hd-1017", "home-depot", "751 Spring St", "Long Beach", "CA", "90806", "(562) 427-9918", "6am-10pm", 33.8100, -118.1890, true, true},
		{"hd-8501", "home-depot", "355 Marketplace Ave", "San Diego", "CA", "92113", "(619) 409-1633", "6am-10pm", 32.7157, -117.1611, true, true},
		// Inactive: closed for remodel, excluded from selection.
		{"hd-0910", "home-depot", "500 S La Brea Ave", "Inglewood", "CA", "90301", "(310) 412-7667", "", 33.9562, -118.3520, true, false},
		// Awaiting geocoding.
		{"hd-8442", "home-depot", "2000 Howe Ave", "Sacramento", "CA", "95825", "(916) 929-9029", "6am-10pm", 0, 0, false, true},

		{"ace-90012", "ace-hardware", "232 W 4th St", "Los Angeles", "CA", "90012", "(213) 935-8803", "8am-7pm", 34.0496, -118.2449, true, true},
		{"ace-90026", "ace-hardware", "1510 Echo Park Ave", "Los Angeles", "CA", "90026", "(213) 250-5767", "8am-7pm", 34.0782, -118.2606, true, true},
		{"ace-91104", "ace-hardware", "2540 E Washington Blvd", "Pasadena", "CA", "91104", "(626) 797-1135", "8am-6pm", 34.1692, -118.1310, true, true},
		{"ace-90254", "ace-hardware", "601 Pacific Coast Hwy", "Hermosa Beach", "CA", "90254", "(310) 379-5155", "8am-7pm", 33.8622, -118.3995, true, true},
		// Outside the LA 50 mile radius.
		{"ace-93101", "ace-hardware", "3631 State St", "Santa Barbara", "CA", "93105", "(805) 687-1715", "8am-6pm", 34.4394, -119.7432, true, true},
		{"ace-92101", "ace-hardware", "675 6th Ave", "San Diego", "CA", "92101", "(619) 239-7898", "8am-7pm", 32.7120, -117.1600, true, true},
		// Permanently closed.
		{"ace-90802", "ace-hardware", "245 Pine Ave", "Long Beach", "CA", "90802", "(562) 436-9714", "", 33.7701, -118.1937, true, false},
	}

	locs := make([]model.StoreLocation, 0, len(rows))
	for _, r := range rows {
		loc := model.StoreLocation{
			ID:       r.id,
			Retailer: r.retailer,
			Address:  r.address,
			City:     r.city,
			State:    r.state,
			Zip:      r.zip,
			Phone:    r.phone,
			Hours:    r.hours,
			Active:   r.active,
		}
		if r.geocoded {
			loc.Latitude, loc.Longitude = coord(r.lat, r.lon)
		}
		locs = append(locs, loc)
	}
	return locs
}

// GeoPoints converts geocoded locations into resolver reference points.
func GeoPoints(locs []model.StoreLocation) []geo.Point {
	points := make([]geo.Point, 0, len(locs))
	for _, l := range locs {
		if !l.Geocoded() {
			continue
		}
		points = append(points, geo.Point{
			Zip:   l.Zip,
			State: l.State,
			Coord: geo.Coordinate{Lat: *l.Latitude, Lon: *l.Longitude},
		})
	}
	return points
}
