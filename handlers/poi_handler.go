package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/1232145/NavPlan/middleware"
	"github.com/1232145/NavPlan/models"
	"github.com/1232145/NavPlan/services"
	"github.com/1232145/NavPlan/utils/errors"
)

type POIHandler struct {
	discovery *services.DiscoveryService
}

type DiscoverResponse struct {
	Places []models.Place `json:"places"`
	Count  int            `json:"count"`
	Lat    float64        `json:"lat"`
	Lng    float64        `json:"lng"`
	Radius float64        `json:"radius"`
}

func NewPOIHandler(discovery *services.DiscoveryService) *POIHandler {
	return &POIHandler{discovery: discovery}
}

// DiscoverPOIs handles GET /api/pois/discover?lat=&lng=&radius=&categories=&q=&limit=
func (h *POIHandler) DiscoverPOIs(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	center := models.Coordinates{Lat: lat, Lng: lng}
	if !center.Valid() {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	radius := 2000.0
	if v := r.URL.Query().Get("radius"); v != "" {
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			middleware.WriteError(w, errors.ErrInvalidInput)
			return
		}
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			middleware.WriteError(w, errors.ErrInvalidInput)
			return
		}
	}
	var categories []string
	if v := r.URL.Query().Get("categories"); v != "" {
		categories = strings.Split(v, ",")
	}
	query := r.URL.Query().Get("q")

	places, err := h.discovery.Discover(r.Context(), center, radius, categories, query, limit)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DiscoverResponse{
		Places: places,
		Count:  len(places),
		Lat:    lat,
		Lng:    lng,
		Radius: radius,
	})
}
