package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/1232145/NavPlan/models"
)

const geoapifyBaseURL = "https://api.geoapify.com/v2/places"

// BoundingBox is a lat/lng rectangle for provider queries.
type BoundingBox struct {
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64
}

// BoundingBoxAround expands a center point into a rectangle with the given
// half-width in meters.
func BoundingBoxAround(center models.Coordinates, halfWidthMeters float64) BoundingBox {
	latDelta := halfWidthMeters / 111000.0
	lngDelta := latDelta / math.Max(math.Cos(center.Lat*math.Pi/180), 0.01)
	return BoundingBox{
		MinLng: center.Lng - lngDelta,
		MinLat: center.Lat - latDelta,
		MaxLng: center.Lng + lngDelta,
		MaxLat: center.Lat + latDelta,
	}
}

// PlacesProvider fetches raw POI records for one category inside a
// bounding rectangle. Implemented by the Geoapify client; faked in tests.
type PlacesProvider interface {
	CategoryPlaces(ctx context.Context, category string, bbox BoundingBox, limit int) ([]models.POI, error)
}

// GeoapifyClient pulls OpenStreetMap POIs through the Geoapify Places API.
type GeoapifyClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeoapifyClient(apiKey string) *GeoapifyClient {
	return &GeoapifyClient{
		apiKey:  apiKey,
		baseURL: geoapifyBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an API key is available.
func (c *GeoapifyClient) Configured() bool {
	return c.apiKey != ""
}

func (c *GeoapifyClient) CategoryPlaces(ctx context.Context, category string, bbox BoundingBox, limit int) ([]models.POI, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("geoapify API key not configured")
	}

	params := url.Values{}
	params.Set("categories", category)
	params.Set("filter", fmt.Sprintf("rect:%f,%f,%f,%f", bbox.MinLng, bbox.MinLat, bbox.MaxLng, bbox.MaxLat))
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geoapify status %d for category %s", resp.StatusCode, category)
	}

	var payload struct {
		Features []struct {
			Properties struct {
				PlaceID      string   `json:"place_id"`
				Name         string   `json:"name"`
				Formatted    string   `json:"formatted"`
				Categories   []string `json:"categories"`
				OpeningHours string   `json:"opening_hours"`
				Rating       float64  `json:"rating"`
			} `json:"properties"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding geoapify response: %w", err)
	}

	now := time.Now().UTC()
	var pois []models.POI
	for _, f := range payload.Features {
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
			continue
		}
		if f.Properties.Name == "" || f.Properties.PlaceID == "" {
			continue
		}
		pois = append(pois, models.POI{
			ID:       "osm_" + f.Properties.PlaceID,
			SourceID: f.Properties.PlaceID,
			Name:     f.Properties.Name,
			Category: category,
			Location: models.GeoPoint{
				Type:        "Point",
				Coordinates: []float64{f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]},
			},
			Address:      f.Properties.Formatted,
			Rating:       f.Properties.Rating,
			OpeningHours: f.Properties.OpeningHours,
			Tags:         f.Properties.Categories,
			Source:       "osm",
			LastUpdated:  now,
		})
	}
	return pois, nil
}
