package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/1232145/NavPlan/handlers"
	"github.com/1232145/NavPlan/middleware"
	"github.com/1232145/NavPlan/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	// POI storage (MongoDB + Redis geo index)
	poiStore := services.NewPOIStore()

	// External data providers degrade to cache/estimates when no key is set.
	var provider services.PlacesProvider
	if geoapify := services.NewGeoapifyClient(os.Getenv("GEOAPIFY_API_KEY")); geoapify.Configured() {
		provider = geoapify
	} else {
		log.Println("GEOAPIFY_API_KEY not set, POI discovery is cache-only")
	}
	var planner services.Planner
	if gemini := services.NewGeminiPlanner(os.Getenv("GEMINI_API_KEY")); gemini.Configured() {
		planner = gemini
	} else {
		log.Println("GEMINI_API_KEY not set, using deterministic itinerary ordering")
	}
	travel := services.NewTravelService(os.Getenv("GOOGLE_MAPS_API_KEY"))

	discovery := services.NewDiscoveryService(poiStore, provider)
	selector := services.NewSelectorService(planner)
	builder := services.NewScheduleService(travel)
	userService := services.NewUserService(poiStore.RedisClient, jwtSecret)

	poiHandler := handlers.NewPOIHandler(discovery)
	scheduleHandler := handlers.NewScheduleHandler(selector, builder)
	archiveHandler := handlers.NewArchiveHandler(userService)
	authHandler := handlers.NewAuthHandler(userService, jwtSecret)

	r := mux.NewRouter()

	r.Use(middleware.CORSMiddleware(middleware.AllowedOrigins()))
	r.Use(middleware.ErrorMiddleware())

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.RegisterUser).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/login", authHandler.LoginUser).Methods("POST", "OPTIONS")

	// Itinerary routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/pois/discover", poiHandler.DiscoverPOIs).Methods("GET", "OPTIONS")
	api.HandleFunc("/schedules", scheduleHandler.CreateSchedule).Methods("POST", "OPTIONS")

	// Archived lists require a logged-in user
	archiveRouter := api.PathPrefix("/archived-lists").Subrouter()
	archiveRouter.Use(middleware.JWTMiddleware(jwtSecret))
	archiveRouter.HandleFunc("", archiveHandler.CreateArchivedList).Methods("POST", "OPTIONS")
	archiveRouter.HandleFunc("", archiveHandler.GetArchivedLists).Methods("GET", "OPTIONS")
	archiveRouter.HandleFunc("/{id}", archiveHandler.DeleteArchivedList).Methods("DELETE", "OPTIONS")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("Server starting on :" + port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
