package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/1232145/NavPlan/models"
)

const poiGeoKey = "pois:geo"

// POICandidate is a cached POI returned from a proximity query, annotated
// with the query-relative components the ranker needs.
type POICandidate struct {
	POI            models.POI
	DistanceMeters float64
	// TextScore counts how many query words matched the name or category.
	TextScore float64
	// Fresh marks a candidate generated in this discovery call rather than
	// read from the cache.
	Fresh bool
}

// POIRepository is the read/write contract for the POI cache. The discovery
// service is its only consumer; everything else sees request-scoped Places.
type POIRepository interface {
	FindNearby(ctx context.Context, center models.Coordinates, radiusMeters float64, category, query string, limit int) ([]POICandidate, error)
	// InsertNew stores records whose source_id is not present yet and
	// returns how many were inserted. Invalid records are dropped.
	InsertNew(ctx context.Context, pois []models.POI) (int, error)
	HasAny(ctx context.Context) (bool, error)
	HasGeneratedFor(ctx context.Context, locationTag string) (bool, error)
}

// POIStore is the production POIRepository: MongoDB is the system of
// record, a Redis geo set serves proximity queries.
type POIStore struct {
	collection  *mongo.Collection
	RedisClient *redis.Client
}

func NewPOIStore() *POIStore {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Fatal("MONGODB_URI environment variable is not set")
	}
	mongoDB := os.Getenv("MONGODB_DB")
	if mongoDB == "" {
		mongoDB = "navplan"
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("MongoDB connection failed: %v", err)
	}
	if err := client.Ping(context.Background(), nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB")
	collection := client.Database(mongoDB).Collection("pois")

	store := &POIStore{collection: collection}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		log.Fatal("REDIS_ADDR environment variable is not set")
	}
	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		redisDB, err = strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid REDIS_DB value: %v", err)
		}
	}
	store.RedisClient = redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := store.RedisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	store.ensureIndexes()
	store.rebuildGeoIndex()

	return store
}

func (s *POIStore) ensureIndexes() {
	ctx := context.Background()
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "source_id", Value: 1}}},
		{Keys: bson.D{{Key: "generated_for", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		log.Printf("Failed to create POI indexes: %v", err)
	}
}

// rebuildGeoIndex loads every stored POI into the Redis geo set so
// proximity queries work after a restart.
func (s *POIStore) rebuildGeoIndex() {
	ctx := context.Background()
	if err := s.RedisClient.Del(ctx, poiGeoKey).Err(); err != nil {
		log.Printf("Failed to reset POI geo index: %v", err)
		return
	}

	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		log.Printf("Failed to load POIs from MongoDB: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var pois []models.POI
	if err := cursor.All(ctx, &pois); err != nil {
		log.Printf("Failed to decode POIs from MongoDB: %v", err)
		return
	}

	for _, poi := range pois {
		if err := s.indexPOI(ctx, poi); err != nil {
			log.Printf("Failed to index POI %s: %v", poi.Name, err)
		}
	}
	log.Printf("Indexed %d POIs into Redis", len(pois))
}

func (s *POIStore) indexPOI(ctx context.Context, poi models.POI) error {
	poiJSON, err := json.Marshal(poi)
	if err != nil {
		return err
	}
	if err := s.RedisClient.HSet(ctx, "poi:"+poi.ID, "data", poiJSON).Err(); err != nil {
		return err
	}
	return s.RedisClient.GeoAdd(ctx, poiGeoKey, &redis.GeoLocation{
		Name:      poi.ID,
		Longitude: poi.Location.Lng(),
		Latitude:  poi.Location.Lat(),
	}).Err()
}

// FindNearby returns cached POIs within radiusMeters of center, closest
// first, optionally filtered by category and free-text query relevance.
func (s *POIStore) FindNearby(ctx context.Context, center models.Coordinates, radiusMeters float64, category, query string, limit int) ([]POICandidate, error) {
	if limit <= 0 {
		limit = 20
	}
	geoResults, err := s.RedisClient.GeoRadius(ctx, poiGeoKey, center.Lng, center.Lat, &redis.GeoRadiusQuery{
		Radius:    radiusMeters / 1000,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
		Count:     limit * 3,
	}).Result()
	if err != nil {
		log.Printf("Redis GeoRadius error: %v", err)
		return nil, err
	}

	queryWords := splitWords(query)
	var results []POICandidate
	for _, geoResult := range geoResults {
		poiJSON, err := s.RedisClient.HGet(ctx, "poi:"+geoResult.Name, "data").Result()
		if err != nil {
			log.Printf("Redis Get error for POI %s: %v", geoResult.Name, err)
			continue
		}
		var poi models.POI
		if err := json.Unmarshal([]byte(poiJSON), &poi); err != nil {
			log.Printf("Failed to unmarshal POI %s: %v", geoResult.Name, err)
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(poi.Category), strings.ToLower(category)) {
			continue
		}
		textScore := textMatchScore(poi, queryWords)
		if len(queryWords) > 0 && textScore == 0 {
			continue
		}
		results = append(results, POICandidate{
			POI:            poi,
			DistanceMeters: geoResult.Dist * 1000,
			TextScore:      textScore,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// InsertNew persists records whose source_id is not stored yet. The dedup
// check is best effort: a concurrent discovery call for the same area may
// still insert a duplicate, which read-time dedup cleans up.
func (s *POIStore) InsertNew(ctx context.Context, pois []models.POI) (int, error) {
	if len(pois) == 0 {
		return 0, nil
	}

	sourceIDs := make([]string, 0, len(pois))
	for _, p := range pois {
		sourceIDs = append(sourceIDs, p.SourceID)
	}
	cursor, err := s.collection.Find(ctx,
		bson.M{"source_id": bson.M{"$in": sourceIDs}},
		options.Find().SetProjection(bson.M{"source_id": 1}))
	if err != nil {
		return 0, err
	}
	existing := make(map[string]struct{})
	var rows []struct {
		SourceID string `bson:"source_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	for _, r := range rows {
		existing[r.SourceID] = struct{}{}
	}

	var docs []any
	var fresh []models.POI
	for _, poi := range pois {
		if _, ok := existing[poi.SourceID]; ok {
			continue
		}
		if poi.Name == "" || len(poi.Location.Coordinates) < 2 {
			log.Printf("Dropping invalid POI record (source_id=%s)", poi.SourceID)
			continue
		}
		docs = append(docs, poi)
		fresh = append(fresh, poi)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	_, err = s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		// Duplicate-key races are tolerated; anything else is reported.
		log.Printf("POI bulk insert reported: %v", err)
	}

	for _, poi := range fresh {
		if err := s.indexPOI(ctx, poi); err != nil {
			log.Printf("Failed to index new POI %s: %v", poi.Name, err)
		}
	}
	return len(fresh), nil
}

func (s *POIStore) HasAny(ctx context.Context) (bool, error) {
	count, err := s.collection.EstimatedDocumentCount(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *POIStore) HasGeneratedFor(ctx context.Context, locationTag string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"generated_for": locationTag}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LocationTag buckets a center point into a ~1km grid cell used to record
// which areas have already been bulk-generated.
func LocationTag(center models.Coordinates) string {
	return fmt.Sprintf("%.2f,%.2f", center.Lat, center.Lng)
}

func splitWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	var words []string
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) > 1 {
			words = append(words, f)
		}
	}
	return words
}

func textMatchScore(poi models.POI, queryWords []string) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	haystack := strings.ToLower(poi.Name + " " + poi.Category + " " + strings.Join(poi.Tags, " "))
	var score float64
	for _, w := range queryWords {
		if strings.Contains(haystack, w) {
			score++
		}
	}
	return score
}
