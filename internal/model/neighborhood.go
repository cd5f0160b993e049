package model

import (
	"fmt"
	"strings"
)

// Point is a WGS 84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the point as "lat,lng", the form venue APIs expect.
func (p Point) String() string {
	return fmt.Sprintf("%g,%g", p.Lat, p.Lng)
}

// Neighborhood is one catalog entry. It is created by the catalog builder and
// filled in place as the geocode, venue and cluster stages complete.
type Neighborhood struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	District      string   `json:"district,omitempty"`
	City          string   `json:"city"`
	Country       string   `json:"country"`
	Location      *Point   `json:"location,omitempty"` // nil until geocoded or on miss
	VenueCount    int      `json:"venue_count"`
	Cluster       *int     `json:"cluster,omitempty"` // nil when not clustered
	TopCategories []string `json:"top_categories,omitempty"`
}

// NewNeighborhood builds a neighborhood with its display identifier.
func NewNeighborhood(name, district, city, country string) Neighborhood {
	name = strings.TrimSpace(name)
	city = strings.TrimSpace(city)
	country = strings.TrimSpace(country)
	return Neighborhood{
		ID:       NeighborhoodID(name, city, country),
		Name:     name,
		District: strings.TrimSpace(district),
		City:     city,
		Country:  country,
	}
}

// NeighborhoodID returns the "<name>, <city>, <country>" identifier used as
// both the geocoder query and the join key.
func NeighborhoodID(name, city, country string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{name, city, country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Geocoded reports whether a location has been attached.
func (n *Neighborhood) Geocoded() bool { return n.Location != nil }

// Venue is a point of interest near a neighborhood. Immutable once retrieved.
type Venue struct {
	Neighborhood string  `json:"neighborhood" csv:"neighborhood"`
	Name         string  `json:"name" csv:"venue"`
	Lat          float64 `json:"lat" csv:"venue_lat"`
	Lng          float64 `json:"lng" csv:"venue_lng"`
	Category     string  `json:"category" csv:"category"`
}

// Location returns the venue coordinates.
func (v Venue) Location() Point { return Point{Lat: v.Lat, Lng: v.Lng} }

// VenuesFor returns the venues owned by the given neighborhood, in input order.
func VenuesFor(venues []Venue, neighborhoodID string) []Venue {
	var out []Venue
	for _, v := range venues {
		if v.Neighborhood == neighborhoodID {
			out = append(out, v)
		}
	}
	return out
}

// NeighborhoodsFromVenues derives a catalog from venue rows, in first-seen
// order, for inputs that carry no separate catalog. Each neighborhood is
// placed at the mean of its venue coordinates.
func NeighborhoodsFromVenues(venues []Venue) []Neighborhood {
	type acc struct {
		lat, lng float64
		n        int
	}
	var order []string
	sums := map[string]*acc{}
	for _, v := range venues {
		a, ok := sums[v.Neighborhood]
		if !ok {
			a = &acc{}
			sums[v.Neighborhood] = a
			order = append(order, v.Neighborhood)
		}
		a.lat += v.Lat
		a.lng += v.Lng
		a.n++
	}

	out := make([]Neighborhood, 0, len(order))
	for _, id := range order {
		a := sums[id]
		out = append(out, Neighborhood{
			ID:       id,
			Name:     id,
			Location: &Point{Lat: a.lat / float64(a.n), Lng: a.lng / float64(a.n)},
		})
	}
	return out
}
