package models

import (
	"fmt"
	"strings"
)

// Coordinates is a WGS84 point. Lat/Lng are validated at construction.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Place is a candidate or selected point of interest. Places are value
// objects: the pipeline passes them by copy and never mutates a shared one.
type Place struct {
	ID           string      `json:"id" bson:"id"`
	Name         string      `json:"name" bson:"name"`
	PlaceType    string      `json:"placeType" bson:"place_type"`
	Location     Coordinates `json:"location" bson:"location"`
	Address      string      `json:"address,omitempty" bson:"address,omitempty"`
	Rating       float64     `json:"rating,omitempty" bson:"rating,omitempty"`
	Source       string      `json:"source,omitempty" bson:"source,omitempty"`
	Note         string      `json:"note,omitempty" bson:"note,omitempty"`
	OpeningHours string      `json:"openingHours,omitempty" bson:"opening_hours,omitempty"`
}

// NewPlace validates the required fields and numeric ranges up front so the
// rest of the pipeline never re-checks them.
func NewPlace(id, name, placeType string, loc Coordinates) (Place, error) {
	if strings.TrimSpace(id) == "" {
		return Place{}, fmt.Errorf("place id is required")
	}
	if strings.TrimSpace(name) == "" {
		return Place{}, fmt.Errorf("place name is required")
	}
	if !loc.Valid() {
		return Place{}, fmt.Errorf("invalid coordinates: lat=%f, lng=%f", loc.Lat, loc.Lng)
	}
	if placeType == "" {
		placeType = "default"
	}
	return Place{ID: id, Name: name, PlaceType: placeType, Location: loc}, nil
}

// SelectedPlace is a Place plus the enrichment the selector attaches
// (AI review, suggested visit duration). Enrichment lives here instead of
// on Place so candidate lists stay immutable.
type SelectedPlace struct {
	Place
	Review          string `json:"aiReview,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// Balance modes for category quotas.
const (
	BalanceFocused  = "focused"
	BalanceBalanced = "balanced"
	BalanceDiverse  = "diverse"
)

// UserPreferences steers the deterministic selection path. Supplied once
// per schedule request.
type UserPreferences struct {
	MustInclude      []string `json:"mustInclude"`
	BalanceMode      string   `json:"balanceMode"`
	MaxPlaces        int      `json:"maxPlaces"`
	MealRequirements bool     `json:"mealRequirements"`
}

// Normalize clamps MaxPlaces to the supported 3-20 range and defaults the
// balance mode.
func (p *UserPreferences) Normalize() {
	if p.MaxPlaces < 3 {
		p.MaxPlaces = 3
	}
	if p.MaxPlaces > 20 {
		p.MaxPlaces = 20
	}
	switch p.BalanceMode {
	case BalanceFocused, BalanceBalanced, BalanceDiverse:
	default:
		p.BalanceMode = BalanceBalanced
	}
}
