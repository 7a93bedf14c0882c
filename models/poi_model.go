package models

import "time"

// GeoPoint is a GeoJSON point ([lng, lat]) for MongoDB 2dsphere indexing.
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(c Coordinates) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{c.Lng, c.Lat}}
}

// Lat returns the latitude component, 0 for a malformed point.
func (g GeoPoint) Lat() float64 {
	if len(g.Coordinates) < 2 {
		return 0
	}
	return g.Coordinates[1]
}

// Lng returns the longitude component, 0 for a malformed point.
func (g GeoPoint) Lng() float64 {
	if len(g.Coordinates) < 2 {
		return 0
	}
	return g.Coordinates[0]
}

// POI is a cached point of interest. POIs are created by the discovery
// service on a cache miss and never mutated afterwards; a later import with
// a different SourceID supersedes rather than updates.
type POI struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	SourceID     string    `json:"source_id" bson:"source_id"`
	Name         string    `json:"name" bson:"name"`
	Category     string    `json:"category" bson:"category"`
	Location     GeoPoint  `json:"location" bson:"location"`
	Address      string    `json:"address,omitempty" bson:"address,omitempty"`
	Rating       float64   `json:"rating,omitempty" bson:"rating,omitempty"`
	OpeningHours string    `json:"opening_hours,omitempty" bson:"opening_hours,omitempty"`
	Tags         []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	Source       string    `json:"source" bson:"source"`
	GeneratedFor string    `json:"generated_for" bson:"generated_for"`
	LastUpdated  time.Time `json:"last_updated" bson:"last_updated"`
}

// ToPlace converts a cached POI into the request-scoped Place value the
// pipeline works with.
func (p POI) ToPlace() Place {
	return Place{
		ID:           p.ID,
		Name:         p.Name,
		PlaceType:    p.Category,
		Location:     Coordinates{Lat: p.Location.Lat(), Lng: p.Location.Lng()},
		Address:      p.Address,
		Rating:       p.Rating,
		Source:       p.Source,
		OpeningHours: p.OpeningHours,
	}
}
