package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/1232145/NavPlan/models"
)

const (
	earthRadiusKm     = 6371.0
	directionsBaseURL = "https://maps.googleapis.com/maps/api/directions/json"
)

// Travel modes accepted by the resolver and the directions API.
const (
	ModeWalking   = "walking"
	ModeDriving   = "driving"
	ModeBicycling = "bicycling"
	ModeTransit   = "transit"
)

// Average speeds (km/h) for the distance-based fallback estimate.
var fallbackSpeedKmh = map[string]float64{
	ModeWalking:   5.0,
	ModeBicycling: 15.0,
	ModeDriving:   40.0,
	ModeTransit:   25.0,
}

// errCredentialsRejected marks a directions failure that will repeat for
// every leg resolved with the same key.
var errCredentialsRejected = errors.New("directions API rejected credentials")

// TravelService resolves travel legs between consecutive schedule stops.
// The live directions API is optional: without a key, or when a call
// fails, legs fall back to a haversine distance estimate. The service is
// stateless and shared; per-build state lives in a TravelBatch.
type TravelService struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	legDelay time.Duration
}

func NewTravelService(apiKey string) *TravelService {
	return &TravelService{
		apiKey:   apiKey,
		baseURL:  directionsBaseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		legDelay: 200 * time.Millisecond,
	}
}

// TravelBatch resolves the legs of one schedule build. A credential
// rejection disables the live API for the remaining legs of this batch
// only; the next build starts fresh, so a fixed key takes effect without
// a restart. Batches are not shared across goroutines.
type TravelBatch struct {
	svc         *TravelService
	keyRejected bool
}

func (s *TravelService) NewBatch() *TravelBatch {
	return &TravelBatch{svc: s}
}

// Resolve returns the travel leg between two points. It never fails: any
// problem with the live API degrades to the haversine estimate.
func (b *TravelBatch) Resolve(ctx context.Context, origin, dest models.Coordinates, mode string) models.RouteSegment {
	s := b.svc
	mode = NormalizeMode(mode)

	if s.apiKey != "" && !b.keyRejected && origin.Valid() && dest.Valid() {
		seg, err := s.fetchDirections(ctx, origin, dest, mode)
		if err == nil {
			if s.legDelay > 0 {
				time.Sleep(s.legDelay) // rate limiting between legs
			}
			return seg
		}
		if errors.Is(err, errCredentialsRejected) {
			b.keyRejected = true
		}
		log.Printf("Directions lookup failed (%s), using distance estimate: %v", mode, err)
	}

	return s.estimateSegment(origin, dest, mode)
}

func (s *TravelService) fetchDirections(ctx context.Context, origin, dest models.Coordinates, mode string) (models.RouteSegment, error) {
	params := url.Values{}
	params.Set("origin", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	params.Set("destination", fmt.Sprintf("%f,%f", dest.Lat, dest.Lng))
	params.Set("mode", mode)
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.RouteSegment{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.RouteSegment{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return models.RouteSegment{}, fmt.Errorf("%w: status %d", errCredentialsRejected, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return models.RouteSegment{}, fmt.Errorf("directions API status %d", resp.StatusCode)
	}

	var result struct {
		Status string `json:"status"`
		Routes []struct {
			OverviewPolyline struct {
				Points string `json:"points"`
			} `json:"overview_polyline"`
			Legs []struct {
				Duration struct {
					Value int `json:"value"`
				} `json:"duration"`
				Distance struct {
					Value int `json:"value"`
				} `json:"distance"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.RouteSegment{}, fmt.Errorf("decoding directions response: %w", err)
	}

	if result.Status == "REQUEST_DENIED" {
		return models.RouteSegment{}, fmt.Errorf("%w: REQUEST_DENIED", errCredentialsRejected)
	}
	if result.Status != "OK" || len(result.Routes) == 0 || len(result.Routes[0].Legs) == 0 {
		return models.RouteSegment{}, fmt.Errorf("no route found: %s", result.Status)
	}

	leg := result.Routes[0].Legs[0]
	return models.RouteSegment{
		StartLocation:   origin,
		EndLocation:     dest,
		DistanceMeters:  leg.Distance.Value,
		DurationSeconds: leg.Duration.Value,
		Polyline:        result.Routes[0].OverviewPolyline.Points,
	}, nil
}

func (s *TravelService) estimateSegment(origin, dest models.Coordinates, mode string) models.RouteSegment {
	distKm := HaversineKm(origin, dest)
	return models.RouteSegment{
		StartLocation:   origin,
		EndLocation:     dest,
		DistanceMeters:  int(distKm * 1000),
		DurationSeconds: EstimateTravelSeconds(distKm, mode),
		Polyline:        "",
	}
}

// NormalizeMode maps unknown travel modes to walking.
func NormalizeMode(mode string) string {
	if _, ok := fallbackSpeedKmh[mode]; ok {
		return mode
	}
	return ModeWalking
}

// HaversineKm is the great-circle distance between two points in kilometers.
func HaversineKm(a, b models.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lon1 := a.Lng * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lon2 := b.Lng * math.Pi / 180

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(h))

	return earthRadiusKm * c
}

// EstimateTravelSeconds derives a travel duration from distance using the
// per-mode speed table, with a minimum floor of 5 minutes walking and
// 3 minutes for every other mode.
func EstimateTravelSeconds(distKm float64, mode string) int {
	mode = NormalizeMode(mode)
	speed := fallbackSpeedKmh[mode]
	minutes := int(math.Ceil(distKm / speed * 60))

	floor := 3
	if mode == ModeWalking {
		floor = 5
	}
	if minutes < floor {
		minutes = floor
	}
	return minutes * 60
}
