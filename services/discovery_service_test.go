package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/1232145/NavPlan/models"
	"github.com/1232145/NavPlan/utils/errors"
)

type fakePOIRepo struct {
	cached    []POICandidate
	hasAny    bool
	generated map[string]bool
	inserted  []models.POI
	findErr   error
}

func (f *fakePOIRepo) FindNearby(ctx context.Context, center models.Coordinates, radiusMeters float64, category, query string, limit int) ([]POICandidate, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if len(f.cached) > limit {
		return f.cached[:limit], nil
	}
	return f.cached, nil
}

func (f *fakePOIRepo) InsertNew(ctx context.Context, pois []models.POI) (int, error) {
	f.inserted = append(f.inserted, pois...)
	return len(pois), nil
}

func (f *fakePOIRepo) HasAny(ctx context.Context) (bool, error) {
	return f.hasAny, nil
}

func (f *fakePOIRepo) HasGeneratedFor(ctx context.Context, locationTag string) (bool, error) {
	return f.generated[locationTag], nil
}

type fakeProvider struct {
	calls int
	pois  []models.POI
}

func (f *fakeProvider) CategoryPlaces(ctx context.Context, category string, bbox BoundingBox, limit int) ([]models.POI, error) {
	f.calls++
	if f.calls == 1 {
		return f.pois, nil
	}
	return nil, nil
}

func cachedPOI(id string, lat, lng, distM float64) POICandidate {
	return POICandidate{
		POI: models.POI{
			ID:       id,
			SourceID: "src-" + id,
			Name:     "Cached " + id,
			Category: "tourism.attraction",
			Location: models.GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}},
			Source:   "osm",
		},
		DistanceMeters: distM,
	}
}

func generatedPOI(id string, lat, lng float64) models.POI {
	return models.POI{
		ID:          "osm_" + id,
		SourceID:    id,
		Name:        "Generated " + id,
		Category:    "catering.cafe",
		Location:    models.GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}},
		Source:      "osm",
		LastUpdated: time.Now().UTC(),
	}
}

func newTestDiscovery(repo POIRepository, provider PlacesProvider) *DiscoveryService {
	s := NewDiscoveryService(repo, provider)
	s.categoryDelay = 0
	return s
}

func TestDiscoverCacheHitSkipsGeneration(t *testing.T) {
	center := models.Coordinates{Lat: 1.30, Lng: 103.80}
	repo := &fakePOIRepo{hasAny: true}
	for i := 0; i < 6; i++ {
		repo.cached = append(repo.cached, cachedPOI(fmt.Sprintf("c%d", i), 1.30+float64(i)*0.01, 103.80, float64(100*(i+1))))
	}
	provider := &fakeProvider{}
	s := newTestDiscovery(repo, provider)

	places, err := s.Discover(context.Background(), center, 2000, nil, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times on a cache hit, want 0", provider.calls)
	}
	if len(places) != 6 {
		t.Errorf("got %d places, want 6", len(places))
	}
	for _, p := range places {
		if p.Source != "osm" {
			t.Errorf("cached place source = %q", p.Source)
		}
	}
}

func TestDiscoverColdAreaGeneratesAndPersists(t *testing.T) {
	center := models.Coordinates{Lat: 1.30, Lng: 103.80}
	repo := &fakePOIRepo{hasAny: false, generated: map[string]bool{}}
	provider := &fakeProvider{pois: []models.POI{
		generatedPOI("g1", 1.300, 103.800),
		generatedPOI("g2", 1.301, 103.801),
	}}
	s := newTestDiscovery(repo, provider)

	places, err := s.Discover(context.Background(), center, 2000, nil, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if provider.calls == 0 {
		t.Fatal("provider never called for a cold area")
	}
	if len(repo.inserted) != 2 {
		t.Errorf("persisted %d POIs, want 2", len(repo.inserted))
	}
	for _, poi := range repo.inserted {
		if poi.GeneratedFor != LocationTag(center) {
			t.Errorf("inserted POI tagged %q, want %q", poi.GeneratedFor, LocationTag(center))
		}
	}
	if len(places) != 2 {
		t.Fatalf("got %d places, want 2", len(places))
	}
	for _, p := range places {
		if p.Source != "live-generated" {
			t.Errorf("fresh place source = %q, want live-generated", p.Source)
		}
	}
}

func TestDiscoverSeenLocationLowersThreshold(t *testing.T) {
	center := models.Coordinates{Lat: 1.30, Lng: 103.80}
	repo := &fakePOIRepo{
		hasAny:    true,
		generated: map[string]bool{LocationTag(center): true},
	}
	// 4 cached hits: below the cold threshold (5) but above the
	// seen-location one (3), so no regeneration.
	for i := 0; i < 4; i++ {
		repo.cached = append(repo.cached, cachedPOI(fmt.Sprintf("c%d", i), 1.30+float64(i)*0.01, 103.80, float64(100*(i+1))))
	}
	provider := &fakeProvider{pois: []models.POI{generatedPOI("g1", 1.30, 103.80)}}
	s := newTestDiscovery(repo, provider)

	if _, err := s.Discover(context.Background(), center, 2000, nil, "", 10); err != nil {
		t.Fatal(err)
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times for a seen location with enough cache, want 0", provider.calls)
	}
}

func TestDiscoverWarmCacheIsIdempotent(t *testing.T) {
	center := models.Coordinates{Lat: 1.30, Lng: 103.80}
	repo := &fakePOIRepo{
		hasAny:    true,
		generated: map[string]bool{LocationTag(center): true},
	}
	for i := 0; i < 8; i++ {
		repo.cached = append(repo.cached, cachedPOI(fmt.Sprintf("c%d", i), 1.30+float64(i)*0.01, 103.80, float64(100*(i+1))))
	}
	provider := &fakeProvider{}
	s := newTestDiscovery(repo, provider)

	first, err := s.Discover(context.Background(), center, 20000, nil, "", 5)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Discover(context.Background(), center, 20000, nil, "", 5)
	if err != nil {
		t.Fatal(err)
	}

	if provider.calls != 0 {
		t.Errorf("provider called %d times on a warm cache, want 0", provider.calls)
	}
	if len(repo.inserted) != 0 {
		t.Errorf("warm-cache discovery persisted %d records, want 0", len(repo.inserted))
	}
	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("position %d differs between calls: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestDiscoverFiltersGeneratedOutsideRadius(t *testing.T) {
	center := models.Coordinates{Lat: 1.30, Lng: 103.80}
	repo := &fakePOIRepo{hasAny: false, generated: map[string]bool{}}
	provider := &fakeProvider{pois: []models.POI{
		generatedPOI("near", 1.300, 103.800),
		generatedPOI("far", 1.400, 103.800), // ~11km out
	}}
	s := newTestDiscovery(repo, provider)

	places, err := s.Discover(context.Background(), center, 2000, nil, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	// Both persisted for future queries, only the near one returned.
	if len(repo.inserted) != 2 {
		t.Errorf("persisted %d POIs, want 2", len(repo.inserted))
	}
	if len(places) != 1 || places[0].Name != "Generated near" {
		t.Errorf("got %v, want only the near place", places)
	}
}

func TestDiscoverEmptyDatabase(t *testing.T) {
	repo := &fakePOIRepo{hasAny: false, generated: map[string]bool{}}
	s := newTestDiscovery(repo, nil)

	_, err := s.Discover(context.Background(), models.Coordinates{Lat: 1.30, Lng: 103.80}, 2000, nil, "", 10)
	if err != errors.ErrNoPOIData {
		t.Errorf("got %v, want ErrNoPOIData", err)
	}
}

func TestDiscoverNothingNearby(t *testing.T) {
	repo := &fakePOIRepo{hasAny: true, generated: map[string]bool{}}
	s := newTestDiscovery(repo, nil)

	_, err := s.Discover(context.Background(), models.Coordinates{Lat: 1.30, Lng: 103.80}, 2000, nil, "", 10)
	if err != errors.ErrNoPOINearby {
		t.Errorf("got %v, want ErrNoPOINearby", err)
	}
}

func TestDiscoverLimitCapsResults(t *testing.T) {
	repo := &fakePOIRepo{hasAny: true}
	for i := 0; i < 12; i++ {
		repo.cached = append(repo.cached, cachedPOI(fmt.Sprintf("c%d", i), 1.30+float64(i)*0.01, 103.80, float64(100*(i+1))))
	}
	s := newTestDiscovery(repo, nil)

	places, err := s.Discover(context.Background(), models.Coordinates{Lat: 1.30, Lng: 103.80}, 20000, nil, "", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != 4 {
		t.Errorf("got %d places, want limit 4", len(places))
	}
}

func TestLocationTag(t *testing.T) {
	a := LocationTag(models.Coordinates{Lat: 1.30123, Lng: 103.80456})
	b := LocationTag(models.Coordinates{Lat: 1.30499, Lng: 103.80001})
	if a != b {
		t.Errorf("nearby points should share a tag: %s vs %s", a, b)
	}
	c := LocationTag(models.Coordinates{Lat: 1.31, Lng: 103.80})
	if a == c {
		t.Errorf("distinct cells should differ: %s vs %s", a, c)
	}
}

func TestBoundingBoxAround(t *testing.T) {
	center := models.Coordinates{Lat: 1.30, Lng: 103.80}
	bbox := BoundingBoxAround(center, 2000)
	if bbox.MinLat >= center.Lat || bbox.MaxLat <= center.Lat {
		t.Errorf("latitude range does not bracket center: %+v", bbox)
	}
	if bbox.MinLng >= center.Lng || bbox.MaxLng <= center.Lng {
		t.Errorf("longitude range does not bracket center: %+v", bbox)
	}
	// 2km half-width is about 0.018 degrees of latitude.
	if span := bbox.MaxLat - bbox.MinLat; span < 0.03 || span > 0.05 {
		t.Errorf("latitude span = %f, want ~0.036", span)
	}
}
