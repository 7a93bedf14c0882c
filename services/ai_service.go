package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/1232145/NavPlan/models"
)

const geminiPlanURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

// PlanRequest is what the planner is asked to arrange.
type PlanRequest struct {
	Places     []models.Place
	Window     models.TimeWindow
	TravelMode string
	Prompt     string
}

// PlanResult is the validated, typed outcome of a planning call. Indices
// refer to positions in PlanRequest.Places; review and duration maps are
// keyed by place id.
type PlanResult struct {
	SelectedIndices []int
	OrderedIndices  []int
	DayOverview     string
	Reviews         map[string]string
	Durations       map[string]int
}

// Planner is the narrow capability interface for the natural-language
// planning collaborator. Callers get a typed result or an error that
// drives their deterministic fallback; JSON scraping never leaks out.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*PlanResult, error)
}

// GeminiPlanner implements Planner against the Gemini generateContent API.
type GeminiPlanner struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	maxRetries int
}

func NewGeminiPlanner(apiKey string) *GeminiPlanner {
	return &GeminiPlanner{
		apiKey:     apiKey,
		baseURL:    geminiPlanURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
	}
}

// Configured reports whether an API key is available.
func (p *GeminiPlanner) Configured() bool {
	return p.apiKey != ""
}

func (p *GeminiPlanner) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("planner API key not configured")
	}

	prompt := buildPlanPrompt(req)
	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":     0.0,
			"topP":            0.95,
			"maxOutputTokens": 2048,
		},
	})
	if err != nil {
		return nil, err
	}

	text, err := p.call(ctx, body)
	if err != nil {
		return nil, err
	}
	return parsePlanResponse(text, req.Places)
}

// call posts the prompt, retrying with exponential backoff only on
// rate-limit responses. Any other failure is returned as-is.
func (p *GeminiPlanner) call(ctx context.Context, body []byte) (string, error) {
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", p.apiKey)

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return "", err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < p.maxRetries {
			resp.Body.Close()
			log.Printf("Planner rate limited, retrying in %v", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
			continue
		}

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return "", fmt.Errorf("planner API status %d: %s", resp.StatusCode, string(msg))
		}

		var result struct {
			Candidates []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("decoding planner response: %w", err)
		}
		if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("planner returned no candidates")
		}
		return result.Candidates[0].Content.Parts[0].Text, nil
	}
}

func buildPlanPrompt(req PlanRequest) string {
	type promptPlace struct {
		Index    int     `json:"index"`
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Category string  `json:"category"`
		Lat      float64 `json:"lat"`
		Lng      float64 `json:"lng"`
		Address  string  `json:"address,omitempty"`
	}
	places := make([]promptPlace, 0, len(req.Places))
	for i, p := range req.Places {
		places = append(places, promptPlace{
			Index:    i,
			ID:       p.ID,
			Name:     p.Name,
			Category: p.PlaceType,
			Lat:      p.Location.Lat,
			Lng:      p.Location.Lng,
			Address:  p.Address,
		})
	}
	placesJSON, _ := json.MarshalIndent(places, "", "  ")

	var b strings.Builder
	b.WriteString("You are a day-trip planner. Arrange a visiting order for the places below.\n\n")
	fmt.Fprintf(&b, "Places:\n%s\n\n", placesJSON)
	fmt.Fprintf(&b, "Time window: %s to %s. The day MUST end by %s; drop places that cannot fit.\n", req.Window.StartTime, req.Window.EndTime, req.Window.EndTime)
	fmt.Fprintf(&b, "Travel mode: %s.\n", req.TravelMode)
	if req.Prompt != "" {
		fmt.Fprintf(&b, "User preferences: %s\n", req.Prompt)
	}
	b.WriteString(`
Rules:
- Never schedule two main-meal restaurants consecutively; keep at least two non-food stops between them.
- At most one lunch restaurant and one dinner restaurant.
- Use realistic visit durations: restaurants 60-90 min, cafes 30-45 min, museums 90-150 min, parks 45-90 min, attractions 60-120 min.

Respond with ONLY a JSON object, no prose, no markdown, with this shape:
{
  "selected_place_indices": [0, 2, 3],
  "ordered_indices": [2, 0, 3],
  "day_overview": "one short paragraph describing the day",
  "place_reviews": [{"place_id": "abc", "review": "one-line review"}],
  "place_durations": {"abc": 90}
}
"selected_place_indices" may be omitted to keep all places. "ordered_indices" is required.
`)
	return b.String()
}

// parsePlanResponse extracts the JSON object from the model's text (which
// may be fenced in markdown), validates it against the place list, and
// drops anything out of range. No valid ordering means an error, which
// sends the caller down the deterministic path.
func parsePlanResponse(text string, places []models.Place) (*PlanResult, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var wire struct {
		SelectedPlaceIndices []int  `json:"selected_place_indices"`
		OrderedIndices       []int  `json:"ordered_indices"`
		DayOverview          string `json:"day_overview"`
		PlaceReviews         []struct {
			PlaceID string `json:"place_id"`
			Review  string `json:"review"`
		} `json:"place_reviews"`
		PlaceDurations map[string]int `json:"place_durations"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("planner returned malformed JSON: %w", err)
	}

	validIDs := make(map[string]struct{}, len(places))
	for _, p := range places {
		validIDs[p.ID] = struct{}{}
	}

	ordered := filterIndices(wire.OrderedIndices, len(places))
	if len(ordered) == 0 {
		return nil, fmt.Errorf("planner returned no valid ordering")
	}

	result := &PlanResult{
		SelectedIndices: filterIndices(wire.SelectedPlaceIndices, len(places)),
		OrderedIndices:  ordered,
		DayOverview:     strings.TrimSpace(wire.DayOverview),
		Reviews:         make(map[string]string),
		Durations:       make(map[string]int),
	}
	for _, r := range wire.PlaceReviews {
		if _, ok := validIDs[r.PlaceID]; ok && strings.TrimSpace(r.Review) != "" {
			result.Reviews[r.PlaceID] = strings.TrimSpace(r.Review)
		}
	}
	for id, minutes := range wire.PlaceDurations {
		if _, ok := validIDs[id]; ok && minutes > 0 && minutes <= 480 {
			result.Durations[id] = minutes
		}
	}
	return result, nil
}

// extractJSONObject pulls the outermost {...} out of a text blob,
// tolerating markdown code fences and surrounding prose.
func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in planner response")
	}
	return text[start : end+1], nil
}

// filterIndices keeps in-range indices, dropping duplicates in order.
func filterIndices(indices []int, n int) []int {
	seen := make(map[int]struct{}, len(indices))
	var out []int
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			continue
		}
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	return out
}
