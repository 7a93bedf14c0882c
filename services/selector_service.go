package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/1232145/NavPlan/models"
)

// User-facing buckets that raw provider categories map into.
const (
	BucketRestaurants = "restaurants"
	BucketCafes       = "cafes"
	BucketMuseums     = "museums"
	BucketParks       = "parks"
	BucketShopping    = "shopping"
	BucketBars        = "bars"
	BucketAttractions = "attractions"
)

// Processing order for quota filling. Restaurants move to the front when
// meal requirements are set.
var bucketOrder = []string{
	BucketAttractions,
	BucketMuseums,
	BucketRestaurants,
	BucketParks,
	BucketCafes,
	BucketShopping,
	BucketBars,
}

// Per-bucket quotas by balance mode. Hand-tuned policy, not a contract.
var balanceQuotas = map[string]map[string]int{
	models.BalanceBalanced: {
		BucketRestaurants: 3, BucketCafes: 2, BucketMuseums: 2, BucketParks: 2,
		BucketShopping: 2, BucketBars: 1, BucketAttractions: 3,
	},
	models.BalanceDiverse: {
		BucketRestaurants: 2, BucketCafes: 2, BucketMuseums: 2, BucketParks: 2,
		BucketShopping: 2, BucketBars: 2, BucketAttractions: 2,
	},
}

const focusedQuota = 5 // quota for must-include buckets in focused mode

// SelectorService produces an ordered subset of candidate places sized to
// the day. A deterministic preference pass always runs; the planning
// collaborator refines ordering when available, with the deterministic
// result as fallback.
type SelectorService struct {
	planner Planner
}

func NewSelectorService(planner Planner) *SelectorService {
	return &SelectorService{planner: planner}
}

// Select returns the ordered, enriched subset plus a day overview (empty
// when the planner did not produce one).
func (s *SelectorService) Select(ctx context.Context, places []models.Place, prefs *models.UserPreferences, hint string, window models.TimeWindow, travelMode string) ([]models.SelectedPlace, string) {
	if len(places) == 0 {
		return nil, ""
	}
	if len(places) == 1 {
		// Single candidate: nothing to order, no AI call.
		return enrich(places, nil), ""
	}

	pool := places
	if prefs != nil {
		pool = selectByPreferences(pool, *prefs, hint)
	}

	// Trivial routes are cheaper to solve greedily than to ask the planner.
	if len(pool) <= 3 || s.planner == nil {
		return enrich(nearestNeighborOrder(pool), nil), ""
	}

	plan, err := s.planner.Plan(ctx, PlanRequest{
		Places:     pool,
		Window:     window,
		TravelMode: travelMode,
		Prompt:     hint,
	})
	if err != nil {
		log.Printf("Planner unavailable, using deterministic order: %v", err)
		return enrich(pool, nil), ""
	}

	ordered := applyPlanOrder(pool, plan)
	return enrich(ordered, plan), plan.DayOverview
}

// selectByPreferences is the deterministic quota path: bucket the pool,
// fill buckets up to their balance-mode quota (restaurants first when
// meals are required), then top up to maxPlaces. A place id never appears
// twice, even across buckets.
func selectByPreferences(pool []models.Place, prefs models.UserPreferences, hint string) []models.Place {
	prefs.Normalize()

	buckets := make(map[string][]models.Place)
	for _, p := range pool {
		b := bucketFor(p.PlaceType)
		buckets[b] = append(buckets[b], p)
	}
	if hint != "" {
		for b := range buckets {
			sortBySimilarity(buckets[b], hint)
		}
	}

	order := append([]string(nil), bucketOrder...)
	if prefs.MealRequirements {
		order = moveToFront(order, BucketRestaurants)
	}

	mustInclude := make(map[string]struct{})
	for _, tag := range prefs.MustInclude {
		mustInclude[bucketFor(tag)] = struct{}{}
	}

	quota := func(bucket string) int {
		q := 0
		switch prefs.BalanceMode {
		case models.BalanceFocused:
			q = 1
			if _, ok := mustInclude[bucket]; ok {
				q = focusedQuota
			}
		default:
			q = balanceQuotas[prefs.BalanceMode][bucket]
		}
		if prefs.MealRequirements && bucket == BucketRestaurants && q < 2 {
			q = 2
		}
		return q
	}

	var selected []models.Place
	taken := make(map[string]struct{})
	for _, b := range order {
		q := quota(b)
		for _, p := range buckets[b] {
			if len(selected) >= prefs.MaxPlaces || q <= 0 {
				break
			}
			if _, ok := taken[p.ID]; ok {
				continue
			}
			selected = append(selected, p)
			taken[p.ID] = struct{}{}
			q--
		}
	}

	// Top up from leftovers when quotas did not fill the day.
	for _, b := range order {
		for _, p := range buckets[b] {
			if len(selected) >= prefs.MaxPlaces {
				return selected
			}
			if _, ok := taken[p.ID]; ok {
				continue
			}
			selected = append(selected, p)
			taken[p.ID] = struct{}{}
		}
	}
	return selected
}

// applyPlanOrder turns the planner's index lists into a place order:
// the optional subset restricts, the ordering arranges, and anything the
// planner selected but forgot to order is appended.
func applyPlanOrder(pool []models.Place, plan *PlanResult) []models.Place {
	selected := make(map[int]struct{})
	if len(plan.SelectedIndices) > 0 {
		for _, idx := range plan.SelectedIndices {
			selected[idx] = struct{}{}
		}
	} else {
		for i := range pool {
			selected[i] = struct{}{}
		}
	}

	used := make(map[int]struct{})
	var ordered []models.Place
	for _, idx := range plan.OrderedIndices {
		if _, ok := selected[idx]; !ok {
			continue
		}
		if _, ok := used[idx]; ok {
			continue
		}
		used[idx] = struct{}{}
		ordered = append(ordered, pool[idx])
	}
	for i := range pool {
		if _, sel := selected[i]; sel {
			if _, ok := used[i]; !ok {
				ordered = append(ordered, pool[i])
			}
		}
	}
	return ordered
}

// enrich attaches planner reviews and suggested durations, synthesizing a
// category default review so downstream consumers never see a gap.
func enrich(ordered []models.Place, plan *PlanResult) []models.SelectedPlace {
	out := make([]models.SelectedPlace, 0, len(ordered))
	for _, p := range ordered {
		sp := models.SelectedPlace{Place: p}
		if plan != nil {
			sp.Review = plan.Reviews[p.ID]
			sp.DurationMinutes = plan.Durations[p.ID]
		}
		if sp.Review == "" {
			sp.Review = defaultReview(p)
		}
		out = append(out, sp)
	}
	return out
}

func defaultReview(p models.Place) string {
	switch bucketFor(p.PlaceType) {
	case BucketRestaurants:
		return fmt.Sprintf("A solid spot to eat at %s.", p.Name)
	case BucketCafes:
		return fmt.Sprintf("A good place for a coffee break at %s.", p.Name)
	case BucketBars:
		return fmt.Sprintf("Worth a drink at %s.", p.Name)
	case BucketMuseums:
		return fmt.Sprintf("Take your time exploring %s.", p.Name)
	case BucketParks:
		return fmt.Sprintf("A pleasant stretch of green to relax in at %s.", p.Name)
	case BucketShopping:
		return fmt.Sprintf("Browse the shops at %s.", p.Name)
	default:
		return fmt.Sprintf("A worthwhile stop at %s.", p.Name)
	}
}

// bucketFor maps a raw category string (Google place types, Geoapify tags,
// free-form user input) into a user-facing bucket.
func bucketFor(placeType string) string {
	t := strings.ToLower(placeType)
	switch {
	case strings.Contains(t, "restaurant"), strings.Contains(t, "food"), strings.Contains(t, "meal"):
		return BucketRestaurants
	case strings.Contains(t, "cafe"), strings.Contains(t, "coffee"), strings.Contains(t, "bakery"):
		return BucketCafes
	case strings.Contains(t, "bar"), strings.Contains(t, "pub"), strings.Contains(t, "night"):
		return BucketBars
	case strings.Contains(t, "museum"), strings.Contains(t, "gallery"), strings.Contains(t, "culture"), strings.Contains(t, "theatre"):
		return BucketMuseums
	case strings.Contains(t, "park"), strings.Contains(t, "garden"), strings.Contains(t, "playground"), strings.Contains(t, "natural"):
		return BucketParks
	case strings.Contains(t, "shop"), strings.Contains(t, "mall"), strings.Contains(t, "market"), strings.Contains(t, "commercial"), strings.Contains(t, "store"):
		return BucketShopping
	default:
		return BucketAttractions
	}
}

// sortBySimilarity stably orders places by shared-word count against the
// user's free-text hint, most similar first.
func sortBySimilarity(places []models.Place, hint string) {
	hintWords := splitWords(hint)
	score := func(p models.Place) int {
		haystack := strings.ToLower(p.Name + " " + p.PlaceType + " " + p.Note)
		n := 0
		for _, w := range hintWords {
			if strings.Contains(haystack, w) {
				n++
			}
		}
		return n
	}
	sort.SliceStable(places, func(i, j int) bool {
		return score(places[i]) > score(places[j])
	})
}

// nearestNeighborOrder greedily routes from the first place to the closest
// unvisited one until the pool is exhausted.
func nearestNeighborOrder(pool []models.Place) []models.Place {
	if len(pool) <= 1 {
		return pool
	}
	ordered := []models.Place{pool[0]}
	remaining := append([]models.Place(nil), pool[1:]...)

	for len(remaining) > 0 {
		current := ordered[len(ordered)-1].Location
		best := 0
		bestDist := HaversineKm(current, remaining[0].Location)
		for i := 1; i < len(remaining); i++ {
			if d := HaversineKm(current, remaining[i].Location); d < bestDist {
				best = i
				bestDist = d
			}
		}
		ordered = append(ordered, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return ordered
}

func moveToFront(order []string, bucket string) []string {
	out := []string{bucket}
	for _, b := range order {
		if b != bucket {
			out = append(out, b)
		}
	}
	return out
}
