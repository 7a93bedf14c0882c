package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/1232145/NavPlan/models"
)

// Default visit durations (minutes) by place category.
var defaultVisitMinutes = []struct {
	match   string
	minutes int
}{
	{"amusement", 180},
	{"theme_park", 180},
	{"zoo", 180},
	{"aquarium", 120},
	{"museum", 120},
	{"gallery", 90},
	{"mall", 90},
	{"restaurant", 90},
	{"attraction", 90},
	{"bar", 60},
	{"pub", 60},
	{"park", 60},
	{"cafe", 45},
	{"church", 45},
	{"worship", 45},
	{"religion", 45},
}

const (
	defaultVisitDuration = 60
	// A stop is dropped rather than shrunk when less than this remains.
	minRemainingMinutes = 15
	minShrunkVisit      = 15
	maxVisitMinutes     = 480
)

// ScheduleService packs an ordered place list into a concrete timeline
// bounded by the time window.
type ScheduleService struct {
	travel *TravelService
}

func NewScheduleService(travel *TravelService) *ScheduleService {
	return &ScheduleService{travel: travel}
}

// Build walks the ordered places, assigning visit windows and travel legs.
// It always produces a usable schedule: places that cannot fit are
// truncated, never errored on.
func (s *ScheduleService) Build(ctx context.Context, places []models.SelectedPlace, window models.TimeWindow, travelMode, dayOverview string) models.Schedule {
	log.Printf("Building schedule for %d places between %s and %s", len(places), window.StartTime, window.EndTime)

	batch := s.travel.NewBatch()
	current := window.StartMinutes()
	end := window.EndMinutes()
	totalDistance := 0
	var items []models.ScheduleItem

	for i, sp := range places {
		duration := sp.DurationMinutes
		if duration <= 0 || duration > maxVisitMinutes {
			duration = visitDuration(sp.PlaceType)
		}

		if current+duration > end {
			remaining := end - current
			if remaining < minRemainingMinutes {
				log.Printf("Time budget exhausted before %s, truncating schedule at %d stops", sp.Name, len(items))
				break
			}
			duration = remaining - 5
			if duration < minShrunkVisit {
				duration = minShrunkVisit
			}
		}

		visitEnd := current + duration
		item := models.ScheduleItem{
			PlaceID:         sp.ID,
			Name:            sp.Name,
			StartTime:       models.FormatClock(current),
			EndTime:         models.FormatClock(visitEnd),
			DurationMinutes: duration,
			Activity:        activityDescription(sp.Place),
			AIReview:        sp.Review,
			Address:         sp.Address,
			PlaceType:       sp.PlaceType,
		}

		if i < len(places)-1 {
			seg := batch.Resolve(ctx, sp.Location, places[i+1].Location, travelMode)
			travelMinutes := (seg.DurationSeconds + 59) / 60
			if visitEnd+travelMinutes > end {
				// No room to travel on: this stop ends the day.
				items = append(items, item)
				current = visitEnd
				break
			}
			item.TravelToNext = &seg
			totalDistance += seg.DistanceMeters
			current = visitEnd + travelMinutes
		} else {
			current = visitEnd
		}
		items = append(items, item)
	}

	// The true last stop gets a zero-length self-segment so map rendering
	// has an anchor point.
	if n := len(items); n > 0 && items[n-1].TravelToNext == nil {
		loc := models.Coordinates{}
		for _, sp := range places {
			if sp.ID == items[n-1].PlaceID {
				loc = sp.Location
				break
			}
		}
		items[n-1].TravelToNext = &models.RouteSegment{
			StartLocation: loc,
			EndLocation:   loc,
		}
	}

	totalDuration := 0
	if len(items) > 0 {
		totalDuration = current - window.StartMinutes()
	}
	if span := window.SpanMinutes(); totalDuration > span {
		// An overrun here means a duration or travel miscalculation
		// upstream; report the clamped value instead of propagating it.
		log.Printf("Schedule overran its window by %d minutes, clamping", totalDuration-span)
		totalDuration = span
	}

	return models.Schedule{
		Items:                items,
		TotalDurationMinutes: totalDuration,
		TotalDistanceMeters:  totalDistance,
		DayOverview:          dayOverview,
	}
}

// visitDuration picks a default visit length from the category table.
func visitDuration(placeType string) int {
	t := strings.ToLower(placeType)
	for _, d := range defaultVisitMinutes {
		if strings.Contains(t, d.match) {
			return d.minutes
		}
	}
	return defaultVisitDuration
}

func activityDescription(p models.Place) string {
	switch bucketFor(p.PlaceType) {
	case BucketRestaurants:
		return fmt.Sprintf("Eat at %s", p.Name)
	case BucketCafes:
		return fmt.Sprintf("Have a coffee at %s", p.Name)
	case BucketBars:
		return fmt.Sprintf("Have a drink at %s", p.Name)
	case BucketMuseums:
		return fmt.Sprintf("Explore %s", p.Name)
	case BucketParks:
		return fmt.Sprintf("Relax at %s", p.Name)
	case BucketShopping:
		return fmt.Sprintf("Shop at %s", p.Name)
	default:
		return fmt.Sprintf("Visit %s", p.Name)
	}
}
