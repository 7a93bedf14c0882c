package models

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeWindow bounds a single-day schedule. Times are HH:MM on the same
// calendar day.
type TimeWindow struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ParseTimeWindow validates both times and the end-after-start invariant.
func ParseTimeWindow(start, end string) (TimeWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeWindow{}, err
	}
	if e <= s {
		return TimeWindow{}, fmt.Errorf("end time %s must be after start time %s", end, start)
	}
	return TimeWindow{StartTime: start, EndTime: end}, nil
}

// StartMinutes returns the window start as minutes since midnight.
func (w TimeWindow) StartMinutes() int {
	m, _ := ParseClock(w.StartTime)
	return m
}

// EndMinutes returns the window end as minutes since midnight.
func (w TimeWindow) EndMinutes() int {
	m, _ := ParseClock(w.EndTime)
	return m
}

// SpanMinutes is the total available minutes in the window.
func (w TimeWindow) SpanMinutes() int {
	return w.EndMinutes() - w.StartMinutes()
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// RouteSegment is a travel leg between two consecutive schedule items.
// Polyline is empty when the leg came from the haversine fallback.
type RouteSegment struct {
	StartLocation   Coordinates `json:"start_location"`
	EndLocation     Coordinates `json:"end_location"`
	DistanceMeters  int         `json:"distance_meters"`
	DurationSeconds int         `json:"duration_seconds"`
	Polyline        string      `json:"polyline"`
}

// ScheduleItem is one visit in the day plan.
type ScheduleItem struct {
	PlaceID         string        `json:"place_id"`
	Name            string        `json:"name"`
	StartTime       string        `json:"start_time"`
	EndTime         string        `json:"end_time"`
	DurationMinutes int           `json:"duration_minutes"`
	Activity        string        `json:"activity,omitempty"`
	AIReview        string        `json:"ai_review,omitempty"`
	Address         string        `json:"address,omitempty"`
	PlaceType       string        `json:"place_type,omitempty"`
	TravelToNext    *RouteSegment `json:"travel_to_next,omitempty"`
}

// Schedule is the built day plan.
type Schedule struct {
	Items                []ScheduleItem `json:"items"`
	TotalDurationMinutes int            `json:"total_duration_minutes"`
	TotalDistanceMeters  int            `json:"total_distance_meters"`
	DayOverview          string         `json:"day_overview,omitempty"`
}

// ScheduleRequest is the payload for POST /api/schedules.
type ScheduleRequest struct {
	Places      []Place          `json:"places"`
	StartTime   string           `json:"start_time"`
	EndTime     string           `json:"end_time"`
	TravelMode  string           `json:"travel_mode"`
	Prompt      string           `json:"prompt,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
	DayOverview string           `json:"day_overview,omitempty"`
}
