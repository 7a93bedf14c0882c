package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/1232145/NavPlan/models"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, false},
		{"markdown fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"surrounding prose", `Here you go: {"a": 1} hope that helps`, `{"a": 1}`, false},
		{"no object", "sorry, I cannot do that", "", true},
		{"only close brace", "}", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterIndices(t *testing.T) {
	got := filterIndices([]int{2, 0, 2, -1, 5, 1}, 4)
	want := []int{2, 0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterIndices = %v, want %v", got, want)
	}
	if got := filterIndices(nil, 4); len(got) != 0 {
		t.Errorf("filterIndices(nil) = %v", got)
	}
}

func planPlaces() []models.Place {
	return []models.Place{
		place("a", "Alpha Park", "park", 1.30, 103.80),
		place("b", "Beta Museum", "museum", 1.31, 103.81),
		place("c", "Gamma Cafe", "cafe", 1.32, 103.82),
	}
}

func TestParsePlanResponse(t *testing.T) {
	text := "```json\n" + `{
		"selected_place_indices": [0, 2],
		"ordered_indices": [2, 0],
		"day_overview": "  A short stroll.  ",
		"place_reviews": [
			{"place_id": "a", "review": "Lovely lawns."},
			{"place_id": "zzz", "review": "Not a real place."}
		],
		"place_durations": {"a": 60, "c": 45, "zzz": 30, "b": 9000}
	}` + "\n```"

	got, err := parsePlanResponse(text, planPlaces())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.OrderedIndices, []int{2, 0}) {
		t.Errorf("OrderedIndices = %v", got.OrderedIndices)
	}
	if !reflect.DeepEqual(got.SelectedIndices, []int{0, 2}) {
		t.Errorf("SelectedIndices = %v", got.SelectedIndices)
	}
	if got.DayOverview != "A short stroll." {
		t.Errorf("DayOverview = %q", got.DayOverview)
	}
	if got.Reviews["a"] != "Lovely lawns." {
		t.Errorf("Reviews[a] = %q", got.Reviews["a"])
	}
	if _, ok := got.Reviews["zzz"]; ok {
		t.Error("review for unknown place id kept")
	}
	if got.Durations["a"] != 60 || got.Durations["c"] != 45 {
		t.Errorf("Durations = %v", got.Durations)
	}
	if _, ok := got.Durations["b"]; ok {
		t.Error("out-of-range duration kept")
	}
	if _, ok := got.Durations["zzz"]; ok {
		t.Error("duration for unknown place id kept")
	}
}

func TestParsePlanResponseMalformed(t *testing.T) {
	if _, err := parsePlanResponse("no json here", planPlaces()); err == nil {
		t.Error("expected error for prose-only response")
	}
	if _, err := parsePlanResponse(`{"ordered_indices": "oops"}`, planPlaces()); err == nil {
		t.Error("expected error for wrong-typed JSON")
	}
	// All indices out of range: no usable ordering.
	if _, err := parsePlanResponse(`{"ordered_indices": [7, 8]}`, planPlaces()); err == nil {
		t.Error("expected error when every index is out of range")
	}
}

func TestGeminiPlannerPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Write([]byte(`{
			"candidates": [{
				"content": {
					"parts": [{"text": "{\"ordered_indices\": [1, 0, 2], \"day_overview\": \"Museums first.\"}"}]
				}
			}]
		}`))
	}))
	defer srv.Close()

	p := &GeminiPlanner{apiKey: "test-key", baseURL: srv.URL, client: srv.Client(), maxRetries: 0}
	got, err := p.Plan(context.Background(), PlanRequest{
		Places: planPlaces(),
		Window: models.TimeWindow{StartTime: "09:00", EndTime: "19:00"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.OrderedIndices, []int{1, 0, 2}) {
		t.Errorf("OrderedIndices = %v", got.OrderedIndices)
	}
	if got.DayOverview != "Museums first." {
		t.Errorf("DayOverview = %q", got.DayOverview)
	}
}

func TestGeminiPlannerUnconfigured(t *testing.T) {
	p := NewGeminiPlanner("")
	if p.Configured() {
		t.Error("empty key reports configured")
	}
	if _, err := p.Plan(context.Background(), PlanRequest{Places: planPlaces()}); err == nil {
		t.Error("expected error without an API key")
	}
}

func TestGeminiPlannerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := &GeminiPlanner{apiKey: "test-key", baseURL: srv.URL, client: srv.Client(), maxRetries: 0}
	if _, err := p.Plan(context.Background(), PlanRequest{Places: planPlaces()}); err == nil {
		t.Error("expected error on server failure")
	}
}

func TestBuildPlanPromptMentionsConstraints(t *testing.T) {
	req := PlanRequest{
		Places:     planPlaces(),
		Window:     models.TimeWindow{StartTime: "10:00", EndTime: "18:00"},
		TravelMode: ModeWalking,
		Prompt:     "somewhere quiet",
	}
	prompt := buildPlanPrompt(req)
	for _, want := range []string{"10:00", "18:00", "walking", "somewhere quiet", "ordered_indices", "Alpha Park"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
