package services

import (
	"context"
	"log"
	"time"

	"github.com/1232145/NavPlan/models"
	"github.com/1232145/NavPlan/utils/errors"
)

// Broad category sweep used for bulk generation of a cold area. Grouped by
// Geoapify's taxonomy: food, tourism/culture, entertainment, leisure,
// shopping, accommodation, services.
var generationCategories = []string{
	"catering.restaurant",
	"catering.cafe",
	"catering.fast_food",
	"catering.bar",
	"catering.pub",
	"catering.ice_cream",
	"tourism.attraction",
	"tourism.sights",
	"tourism.information",
	"entertainment.museum",
	"entertainment.culture.gallery",
	"entertainment.culture.theatre",
	"entertainment.cinema",
	"entertainment.zoo",
	"entertainment.aquarium",
	"entertainment.theme_park",
	"leisure.park",
	"leisure.playground",
	"leisure.spa",
	"leisure.picnic",
	"commercial.shopping_mall",
	"commercial.marketplace",
	"commercial.supermarket",
	"commercial.gift_and_souvenir",
	"commercial.books",
	"accommodation.hotel",
	"accommodation.hostel",
	"religion.place_of_worship",
	"sport.sports_centre",
	"service.tourism",
}

const (
	// Ceiling on candidates produced by one bulk-generation sweep.
	maxGeneratedPOIs = 200
	// Per-category results requested from the provider.
	perCategoryLimit = 40
)

// DiscoveryService returns ranked candidate places around a point,
// preferring the cache and falling back to bulk generation from the place
// data provider when the cache is sparse.
type DiscoveryService struct {
	repo          POIRepository
	provider      PlacesProvider
	ranker        *Ranker
	categoryDelay time.Duration
}

func NewDiscoveryService(repo POIRepository, provider PlacesProvider) *DiscoveryService {
	return &DiscoveryService{
		repo:          repo,
		provider:      provider,
		ranker:        NewRanker(DefaultRankWeights()),
		categoryDelay: 100 * time.Millisecond,
	}
}

// Discover implements the cache-first discovery flow. It never fails on
// provider problems; the only error it returns is the insufficient-data
// condition when no usable candidate exists.
func (s *DiscoveryService) Discover(ctx context.Context, center models.Coordinates, radiusMeters float64, categories []string, searchText string, limit int) ([]models.Place, error) {
	if limit <= 0 {
		limit = 10
	}
	categoryFilter := ""
	if len(categories) == 1 {
		categoryFilter = categories[0]
	}

	cached, err := s.repo.FindNearby(ctx, center, radiusMeters, categoryFilter, searchText, limit*3)
	if err != nil {
		log.Printf("POI cache query failed: %v", err)
	}

	// A location generated before is assumed to be well populated already,
	// so fewer cached hits are enough to skip regeneration.
	tag := LocationTag(center)
	threshold := limit / 2
	if seen, err := s.repo.HasGeneratedFor(ctx, tag); err == nil && seen {
		threshold = limit / 3
	}
	if threshold < 1 {
		threshold = 1
	}

	candidates := cached
	if len(cached) < threshold {
		generated := s.generate(ctx, center, radiusMeters, tag)
		if len(generated) > 0 {
			if _, err := s.repo.InsertNew(ctx, generated); err != nil {
				log.Printf("Failed to persist generated POIs: %v", err)
			}
			candidates = mergeCandidates(cached, generated, center, radiusMeters, searchText)
		}
	}

	ranked := s.ranker.Rank(candidates, categories)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if len(ranked) == 0 {
		hasAny, err := s.repo.HasAny(ctx)
		if err == nil && !hasAny {
			return nil, errors.ErrNoPOIData
		}
		return nil, errors.ErrNoPOINearby
	}

	places := make([]models.Place, 0, len(ranked))
	for _, cand := range ranked {
		place := cand.POI.ToPlace()
		if cand.Fresh {
			place.Source = "live-generated"
		} else if place.Source == "" {
			place.Source = "cache"
		}
		places = append(places, place)
	}
	return places, nil
}

// generate sweeps the provider's category taxonomy over a rectangle twice
// the requested radius, so one cold-area import also warms nearby future
// requests. Per-category failures are logged and skipped.
func (s *DiscoveryService) generate(ctx context.Context, center models.Coordinates, radiusMeters float64, tag string) []models.POI {
	if s.provider == nil {
		return nil
	}

	bbox := BoundingBoxAround(center, radiusMeters*2)
	var all []models.POI
	for _, category := range generationCategories {
		if len(all) >= maxGeneratedPOIs {
			break
		}
		pois, err := s.provider.CategoryPlaces(ctx, category, bbox, perCategoryLimit)
		if err != nil {
			log.Printf("Provider query failed for category %s: %v", category, err)
			continue
		}
		for i := range pois {
			pois[i].GeneratedFor = tag
		}
		all = append(all, pois...)
		if s.categoryDelay > 0 {
			time.Sleep(s.categoryDelay) // rate limiting between category calls
		}
	}
	if len(all) > maxGeneratedPOIs {
		all = all[:maxGeneratedPOIs]
	}
	log.Printf("Generated %d POIs for area %s", len(all), tag)
	return all
}

// mergeCandidates combines cached hits with freshly generated POIs that
// fall inside the requested radius, deduplicating by source id.
func mergeCandidates(cached []POICandidate, generated []models.POI, center models.Coordinates, radiusMeters float64, searchText string) []POICandidate {
	seen := make(map[string]struct{}, len(cached))
	for _, c := range cached {
		seen[c.POI.SourceID] = struct{}{}
	}

	queryWords := splitWords(searchText)
	merged := append([]POICandidate(nil), cached...)
	for _, poi := range generated {
		if _, ok := seen[poi.SourceID]; ok {
			continue
		}
		distM := HaversineKm(center, models.Coordinates{Lat: poi.Location.Lat(), Lng: poi.Location.Lng()}) * 1000
		if distM > radiusMeters {
			continue
		}
		merged = append(merged, POICandidate{
			POI:            poi,
			DistanceMeters: distM,
			TextScore:      textMatchScore(poi, queryWords),
			Fresh:          true,
		})
		seen[poi.SourceID] = struct{}{}
	}
	return merged
}
