package oracle

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/lysyi3m/ugc-review/app/format"
)

func reviewFixture(hasCaption bool) map[string]any {
	review := map[string]any{
		"target_persona":        "Overwhelmed students before finals",
		"hook_score":            22,
		"pacing_score":          12,
		"narrative_score":       16,
		"feature_demo_score":    12,
		"technical_score":       8,
		"trend_score":           4,
		"shareability_score":    4,
		"features_shown":        []string{"AI summaries", "Flashcards"},
		"focus_rating":          "focused",
		"overall_score":         85,
		"virality_tier":         "high",
		"key_strengths":         []string{"Relatable hook", "Clear UI"},
		"areas_for_improvement": []string{"Add captions"},
		"recommendations":       "Shorten the intro.",
		"alternative_hooks":     []string{"POV: finals week", "I was failing until..."},
		"hook_analysis":         "Strong open.",
		"pacing_analysis":       "Quick cuts.",
		"narrative_analysis":    "Clear before and after.",
		"feature_analysis":      "Focused on summaries.",
		"technical_analysis":    "Readable UI.",
		"trend_analysis":        "Uses a trending sound.",
		"shareability_analysis": "Tag-worthy.",
	}
	if hasCaption {
		review["caption_score"] = 12
		review["caption_analysis"] = "Good hashtags."
		review["caption_suggestions"] = []string{"finals szn survival kit"}
	}
	return review
}

func encode(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}
	return string(data)
}

func TestParseReview_WithCaption(t *testing.T) {
	review, err := ParseReview(encode(t, reviewFixture(true)), true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if review.OverallScore != 85 {
		t.Errorf("Expected overall score 85, got %d", review.OverallScore)
	}
	if review.ViralityTier != TierHigh {
		t.Errorf("Expected tier HIGH, got %s", review.ViralityTier)
	}
	if review.FocusRating != "FOCUSED" {
		t.Errorf("Expected focus rating FOCUSED, got %s", review.FocusRating)
	}
	if !review.HasCaption() || *review.CaptionScore != 12 {
		t.Errorf("Expected caption score 12, got %v", review.CaptionScore)
	}
}

func TestParseReview_WithoutCaptionStripsCaptionFields(t *testing.T) {
	fixture := reviewFixture(true)

	review, err := ParseReview(encode(t, fixture), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if review.HasCaption() {
		t.Error("Expected caption score to be dropped for no-caption variant")
	}
	if review.CaptionAnalysis != "" {
		t.Errorf("Expected empty caption analysis, got '%s'", review.CaptionAnalysis)
	}
}

func TestParseReview_VariantBounds(t *testing.T) {
	tests := []struct {
		name       string
		hasCaption bool
		field      string
		value      int
		wantErr    bool
	}{
		{"caption hook at max", true, "hook_score", 25, false},
		{"caption hook over max", true, "hook_score", 26, true},
		{"caption trend at max", true, "trend_score", 10, false},
		{"no caption hook at max", false, "hook_score", 30, false},
		{"no caption hook over max", false, "hook_score", 31, true},
		{"no caption trend at max", false, "trend_score", 5, false},
		{"no caption trend over max", false, "trend_score", 6, true},
		{"pacing over max", false, "pacing_score", 16, true},
		{"narrative over max", true, "narrative_score", 21, true},
		{"shareability over max", false, "shareability_score", 6, true},
		{"caption score over max", true, "caption_score", 16, true},
		{"overall over max", false, "overall_score", 101, true},
		{"negative technical", false, "technical_score", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := reviewFixture(tt.hasCaption)
			fixture[tt.field] = tt.value

			_, err := ParseReview(encode(t, fixture), tt.hasCaption)
			if tt.wantErr && err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidReview) {
				t.Errorf("Expected ErrInvalidReview, got %v", err)
			}
		})
	}
}

func TestParseReview_ListBounds(t *testing.T) {
	fixture := reviewFixture(false)
	fixture["alternative_hooks"] = []string{"only one"}
	if _, err := ParseReview(encode(t, fixture), false); err == nil {
		t.Error("Expected error for a single alternative hook")
	}

	fixture = reviewFixture(false)
	fixture["key_strengths"] = []string{}
	if _, err := ParseReview(encode(t, fixture), false); err == nil {
		t.Error("Expected error for empty key strengths")
	}
}

func TestParseReview_CaptionScoreRequiredWithCaption(t *testing.T) {
	fixture := reviewFixture(false)

	_, err := ParseReview(encode(t, fixture), true)
	if !errors.Is(err, ErrInvalidReview) {
		t.Errorf("Expected ErrInvalidReview, got %v", err)
	}
}

func TestParseReview_UnknownTier(t *testing.T) {
	fixture := reviewFixture(false)
	fixture["virality_tier"] = "LEGENDARY"

	if _, err := ParseReview(encode(t, fixture), false); err == nil {
		t.Error("Expected error for unknown tier")
	}
}

func TestParseReview_UnknownFocusRating(t *testing.T) {
	fixture := reviewFixture(false)
	fixture["focus_rating"] = "chaotic"

	if _, err := ParseReview(encode(t, fixture), false); err == nil {
		t.Error("Expected error for unknown focus rating")
	}
}

func TestParseReview_MalformedJSON(t *testing.T) {
	_, err := ParseReview("not json", false)
	if !errors.Is(err, ErrInvalidReview) {
		t.Errorf("Expected ErrInvalidReview, got %v", err)
	}
}

func TestRender_WithCaption(t *testing.T) {
	review, err := ParseReview(encode(t, reviewFixture(true)), true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	rendered := review.Render()

	expected := []string{
		"*TARGET PERSONA FIT*\nOverwhelmed students before finals",
		"*Hook Score: 22/25*",
		"*Trend Score: 4/10*",
		"*Features Shown:* AI summaries, Flashcards",
		"*Focus Rating:* FOCUSED",
		"*CAPTION ANALYSIS*\nGood hashtags.\n*Caption Score: 12/15*",
		format.Divider,
		"*OVERALL SCORE: 85/100*\n\n*Predicted Virality Tier: HIGH*",
		"*Key Strengths*\n• Relatable hook\n• Clear UI",
		"*Caption Suggestions*\n• finals szn survival kit",
		"*Best Performing Angles for This Content*\n• POV: finals week\n• I was failing until...",
	}
	for _, part := range expected {
		if !strings.Contains(rendered, part) {
			t.Errorf("Expected rendered review to contain %q", part)
		}
	}

	if strings.Index(rendered, "*CAPTION ANALYSIS*") > strings.Index(rendered, format.Divider) {
		t.Error("Expected caption analysis before the divider")
	}
}

func TestRender_WithoutCaption(t *testing.T) {
	review, err := ParseReview(encode(t, reviewFixture(false)), false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	rendered := review.Render()

	if !strings.Contains(rendered, "*Hook Score: 22/30*") {
		t.Error("Expected hook max of 30 without caption")
	}
	if !strings.Contains(rendered, "*Trend Score: 4/5*") {
		t.Error("Expected trend max of 5 without caption")
	}
	if strings.Contains(rendered, "CAPTION ANALYSIS") || strings.Contains(rendered, "Caption Suggestions") {
		t.Error("Did not expect caption sections without caption")
	}
	if !strings.HasSuffix(rendered, "• I was failing until...") {
		t.Error("Expected alternative hooks to close the review")
	}
}

func TestRender_NoFeatures(t *testing.T) {
	review := &VideoReview{AlternativeHooks: []string{"a", "b"}}

	if !strings.Contains(review.Render(), "*Features Shown:* None identified") {
		t.Error("Expected placeholder when no features were identified")
	}
}

func TestIsApproved(t *testing.T) {
	score := func(v int) *int { return &v }

	tests := []struct {
		name      string
		score     *int
		threshold int
		expected  bool
	}{
		{"absent score", nil, 80, false},
		{"absent score zero threshold", nil, 0, false},
		{"below", score(79), 80, false},
		{"boundary inclusive", score(80), 80, true},
		{"above", score(85), 80, true},
		{"zero threshold", score(0), 0, true},
		{"max", score(100), 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsApproved(tt.score, tt.threshold); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}

	for s := 0; s <= 100; s++ {
		for _, threshold := range []int{0, 50, 80, 100} {
			if IsApproved(score(s), threshold) != (s >= threshold) {
				t.Fatalf("IsApproved(%d, %d) disagrees with s >= threshold", s, threshold)
			}
		}
	}
}

func TestReviewSchema(t *testing.T) {
	withCaption := reviewSchema(true)
	if *withCaption.Properties["hook_score"].Maximum != 25 {
		t.Errorf("Expected hook maximum 25, got %v", *withCaption.Properties["hook_score"].Maximum)
	}
	if _, ok := withCaption.Properties["caption_score"]; !ok {
		t.Error("Expected caption_score in captioned schema")
	}

	withoutCaption := reviewSchema(false)
	if *withoutCaption.Properties["trend_score"].Maximum != 5 {
		t.Errorf("Expected trend maximum 5, got %v", *withoutCaption.Properties["trend_score"].Maximum)
	}
	if _, ok := withoutCaption.Properties["caption_score"]; ok {
		t.Error("Did not expect caption_score in no-caption schema")
	}
	for _, name := range withoutCaption.Required {
		if _, ok := withoutCaption.Properties[name]; !ok {
			t.Errorf("Required field %s has no property", name)
		}
	}
}
