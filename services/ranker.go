package services

import (
	"strings"

	"github.com/1232145/NavPlan/models"
)

// RankWeights defines coefficients for each ranking factor.
type RankWeights struct {
	TextRelevance    float64 `json:"text_relevance"`
	Distance         float64 `json:"distance"`
	CategoryMatch    float64 `json:"category_match"`
	Rating           float64 `json:"rating"`
	Freshness        float64 `json:"freshness"`
	DiversityPenalty float64 `json:"diversity_penalty"`
	DiversityCap     float64 `json:"diversity_cap"`
}

// DefaultRankWeights returns a reasonable baseline.
func DefaultRankWeights() RankWeights {
	return RankWeights{
		TextRelevance:    1.0,
		Distance:         1.0,
		CategoryMatch:    0.8,
		Rating:           0.3,
		Freshness:        0.5,
		DiversityPenalty: 0.4,
		DiversityCap:     1.6,
	}
}

const (
	unratedDefault = 2.5
	dedupeRadiusM  = 50.0
	maxRatingScale = 5.0
)

// Ranker scores, orders and deduplicates discovery candidates.
type Ranker struct {
	weights RankWeights
}

func NewRanker(w RankWeights) *Ranker {
	return &Ranker{weights: w}
}

// Rank orders candidates by a weighted sum of text relevance, proximity,
// category preference, rating and freshness, with a running per-category
// penalty so one category cannot dominate the head of the list. Ties break
// toward the closer candidate. The result is deduplicated: two candidates
// within ~50m sharing a name word collapse into the higher-ranked one.
func (r *Ranker) Rank(candidates []POICandidate, preferredCategories []string) []POICandidate {
	if len(candidates) <= 1 {
		return candidates
	}

	preferred := make(map[string]struct{}, len(preferredCategories))
	for _, c := range preferredCategories {
		preferred[strings.ToLower(c)] = struct{}{}
	}

	base := make([]float64, len(candidates))
	for i, cand := range candidates {
		base[i] = r.baseScore(cand, preferred)
	}

	// Greedy pick: highest adjusted score first, where the adjustment is
	// the capped diversity penalty for categories already emitted.
	categoryCounts := make(map[string]int)
	remaining := make([]int, len(candidates))
	for i := range remaining {
		remaining[i] = i
	}

	ordered := make([]POICandidate, 0, len(candidates))
	for len(remaining) > 0 {
		bestPos := 0
		bestScore := r.adjusted(base[remaining[0]], candidates[remaining[0]], categoryCounts)
		for pos := 1; pos < len(remaining); pos++ {
			idx := remaining[pos]
			score := r.adjusted(base[idx], candidates[idx], categoryCounts)
			if score > bestScore ||
				(score == bestScore && candidates[idx].DistanceMeters < candidates[remaining[bestPos]].DistanceMeters) {
				bestPos = pos
				bestScore = score
			}
		}
		picked := remaining[bestPos]
		ordered = append(ordered, candidates[picked])
		categoryCounts[categoryKey(candidates[picked].POI.Category)]++
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return dedupeByProximity(ordered)
}

func (r *Ranker) baseScore(cand POICandidate, preferred map[string]struct{}) float64 {
	score := r.weights.TextRelevance * cand.TextScore

	// Inverse-distance bonus: 1.0 at the center, halved every 500m.
	score += r.weights.Distance / (1 + cand.DistanceMeters/500)

	if _, ok := preferred[categoryKey(cand.POI.Category)]; ok {
		score += r.weights.CategoryMatch
	}

	rating := cand.POI.Rating
	if rating <= 0 {
		rating = unratedDefault
	}
	score += r.weights.Rating * rating / maxRatingScale

	if cand.Fresh {
		score += r.weights.Freshness
	}
	return score
}

func (r *Ranker) adjusted(base float64, cand POICandidate, counts map[string]int) float64 {
	penalty := float64(counts[categoryKey(cand.POI.Category)]) * r.weights.DiversityPenalty
	if penalty > r.weights.DiversityCap {
		penalty = r.weights.DiversityCap
	}
	return base - penalty
}

func categoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// dedupeByProximity collapses candidates that are within dedupeRadiusM of
// an earlier (higher-ranked) one and share at least one name word.
func dedupeByProximity(ordered []POICandidate) []POICandidate {
	var kept []POICandidate
	for _, cand := range ordered {
		duplicate := false
		for _, k := range kept {
			if samePlace(cand.POI, k.POI) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, cand)
		}
	}
	return kept
}

func samePlace(a, b models.POI) bool {
	distM := HaversineKm(
		models.Coordinates{Lat: a.Location.Lat(), Lng: a.Location.Lng()},
		models.Coordinates{Lat: b.Location.Lat(), Lng: b.Location.Lng()},
	) * 1000
	if distM > dedupeRadiusM {
		return false
	}
	return shareNameWord(a.Name, b.Name)
}

func shareNameWord(a, b string) bool {
	wordsA := splitWords(a)
	wordsB := splitWords(b)
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if wa == wb {
				return true
			}
		}
	}
	return false
}
