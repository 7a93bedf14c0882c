package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/1232145/NavPlan/middleware"
	"github.com/1232145/NavPlan/models"
	"github.com/1232145/NavPlan/services"
	"github.com/1232145/NavPlan/utils/errors"
)

type ScheduleHandler struct {
	selector *services.SelectorService
	builder  *services.ScheduleService
}

type ScheduleResponse struct {
	Schedule models.Schedule `json:"schedule"`
	Count    int             `json:"count"`
}

func NewScheduleHandler(selector *services.SelectorService, builder *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{selector: selector, builder: builder}
}

// CreateSchedule handles POST /api/schedules: selects and orders the
// submitted places, then packs them into a timeline.
func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req models.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	if len(req.Places) == 0 {
		middleware.WriteError(w, errors.NewAPIError("INVALID_INPUT", "At least one place is required", http.StatusBadRequest))
		return
	}
	for _, p := range req.Places {
		if p.ID == "" || !p.Location.Valid() {
			middleware.WriteError(w, errors.NewAPIError("INVALID_INPUT", "Every place needs an id and valid coordinates", http.StatusBadRequest))
			return
		}
	}

	if req.StartTime == "" {
		req.StartTime = "09:00"
	}
	if req.EndTime == "" {
		req.EndTime = "21:00"
	}
	window, err := models.ParseTimeWindow(req.StartTime, req.EndTime)
	if err != nil {
		middleware.WriteError(w, errors.Wrap(err, "INVALID_INPUT", "Invalid time window", http.StatusBadRequest))
		return
	}
	mode := services.NormalizeMode(req.TravelMode)

	var selected []models.SelectedPlace
	overview := req.DayOverview
	if overview != "" {
		// Caller already has an overview and an ordering from a previous
		// run; skip re-planning and keep its order.
		selected = make([]models.SelectedPlace, 0, len(req.Places))
		for _, p := range req.Places {
			selected = append(selected, models.SelectedPlace{Place: p})
		}
	} else {
		selected, overview = h.selector.Select(r.Context(), req.Places, req.Preferences, req.Prompt, window, mode)
	}

	schedule := h.builder.Build(r.Context(), selected, window, mode, overview)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ScheduleResponse{
		Schedule: schedule,
		Count:    len(schedule.Items),
	})
}
