package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/1232145/NavPlan/models"
	"github.com/1232145/NavPlan/utils/errors"
)

type UserService struct {
	users       *mongo.Collection
	archives    *mongo.Collection
	redisClient *redis.Client
	jwtSecret   string
}

func NewUserService(redisClient *redis.Client, jwtSecret string) *UserService {
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
	db := client.Database(mongoDB)
	users := db.Collection("users")
	archives := db.Collection("archived_lists")

	// Ensure unique index on username and email
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}, {Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := users.Indexes().CreateOne(context.Background(), indexModel); err != nil {
		log.Printf("Failed to create unique index on users: %v", err)
	}
	archiveIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
	}
	if _, err := archives.Indexes().CreateOne(context.Background(), archiveIndex); err != nil {
		log.Printf("Failed to create index on archived_lists: %v", err)
	}

	return &UserService{
		users:       users,
		archives:    archives,
		redisClient: redisClient,
		jwtSecret:   jwtSecret,
	}
}

// GetUser retrieves a user from Redis or MongoDB
func (s *UserService) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User

	// Check Redis first
	userJSON, err := s.redisClient.Get(ctx, "user:"+userID).Result()
	if err == nil {
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			log.Printf("Failed to unmarshal user %s: %v", userID, err)
		} else {
			return user, nil
		}
	}

	err = s.users.FindOne(ctx, bson.M{"public_id": bson.M{"$eq": userID}}).Decode(&user)
	if err != nil {
		return models.User{}, err
	}

	// Cache in Redis
	userJSONBytes, err := json.Marshal(user)
	if err != nil {
		return user, err
	}
	s.redisClient.Set(ctx, "user:"+userID, userJSONBytes, 24*time.Hour)

	return user, nil
}

// SaveArchivedList stores a named list of places for the current user.
func (s *UserService) SaveArchivedList(ctx context.Context, name string, places []models.Place, note string) (string, error) {
	userID, ok := ctx.Value("userID").(string)
	if !ok || userID == "" {
		return "", errors.ErrUnauthorized
	}
	if name == "" || len(places) == 0 {
		return "", errors.ErrInvalidInput
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return "", fmt.Errorf("user not found: %v", err)
	}

	list := models.ArchivedList{
		PublicID: uuid.New().String(),
		UserID:   userID,
		Name:     name,
		Places:   places,
		Note:     note,
		Date:     time.Now().UTC(),
	}
	if _, err := s.archives.InsertOne(ctx, list); err != nil {
		log.Printf("Failed to save archived list for user %s: %v", userID, err)
		return "", errors.Wrap(err, "DB_ERROR", "Failed to save list", http.StatusInternalServerError)
	}
	log.Printf("Saved archived list %q (%d places) for user %s", name, len(places), userID)
	return list.PublicID, nil
}

// ListArchivedLists returns the current user's saved lists, newest first.
func (s *UserService) ListArchivedLists(ctx context.Context) ([]models.ArchivedList, error) {
	userID, ok := ctx.Value("userID").(string)
	if !ok || userID == "" {
		return nil, errors.ErrUnauthorized
	}

	cursor, err := s.archives.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		log.Printf("Failed to load archived lists for user %s: %v", userID, err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var lists []models.ArchivedList
	if err := cursor.All(ctx, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// DeleteArchivedList removes one of the current user's saved lists.
func (s *UserService) DeleteArchivedList(ctx context.Context, listID string) error {
	userID, ok := ctx.Value("userID").(string)
	if !ok || userID == "" {
		return errors.ErrUnauthorized
	}

	result, err := s.archives.DeleteOne(ctx, bson.M{"public_id": listID, "user_id": userID})
	if err != nil {
		log.Printf("Failed to delete archived list %s: %v", listID, err)
		return err
	}
	if result.DeletedCount == 0 {
		return errors.ErrNotFound
	}
	return nil
}
