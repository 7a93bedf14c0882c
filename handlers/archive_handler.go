package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/1232145/NavPlan/middleware"
	"github.com/1232145/NavPlan/models"
	"github.com/1232145/NavPlan/services"
	"github.com/1232145/NavPlan/utils/errors"
)

type ArchiveHandler struct {
	userService *services.UserService
}

type ArchivedListsResponse struct {
	Lists []models.ArchivedList `json:"lists"`
	Count int                   `json:"count"`
}

func NewArchiveHandler(userService *services.UserService) *ArchiveHandler {
	return &ArchiveHandler{userService: userService}
}

func (h *ArchiveHandler) CreateArchivedList(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name   string         `json:"name"`
		Places []models.Place `json:"places"`
		Note   string         `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	listID, err := h.userService.SaveArchivedList(r.Context(), input.Name, input.Places, input.Note)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"listID": listID})
}

func (h *ArchiveHandler) GetArchivedLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.userService.ListArchivedLists(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ArchivedListsResponse{Lists: lists, Count: len(lists)})
}

func (h *ArchiveHandler) DeleteArchivedList(w http.ResponseWriter, r *http.Request) {
	listID := mux.Vars(r)["id"]
	if listID == "" {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	if err := h.userService.DeleteArchivedList(r.Context(), listID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
