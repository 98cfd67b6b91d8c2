package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lysyi3m/ugc-review/app/format"
)

const (
	TierLow    = "LOW"
	TierMedium = "MEDIUM"
	TierHigh   = "HIGH"
	TierViral  = "VIRAL"
)

var ErrInvalidReview = errors.New("invalid video review")

var validate = validator.New(validator.WithRequiredStructEnabled())

// VideoReview is the structured result of scoring one video. The caption
// fields are only set when the submission carried a caption.
type VideoReview struct {
	TargetPersona string `json:"target_persona" validate:"required"`

	HookScore         int  `json:"hook_score" validate:"gte=0,lte=30"`
	PacingScore       int  `json:"pacing_score" validate:"gte=0,lte=15"`
	NarrativeScore    int  `json:"narrative_score" validate:"gte=0,lte=20"`
	FeatureDemoScore  int  `json:"feature_demo_score" validate:"gte=0,lte=15"`
	TechnicalScore    int  `json:"technical_score" validate:"gte=0,lte=10"`
	TrendScore        int  `json:"trend_score" validate:"gte=0,lte=10"`
	ShareabilityScore int  `json:"shareability_score" validate:"gte=0,lte=5"`
	CaptionScore      *int `json:"caption_score,omitempty" validate:"omitempty,gte=0,lte=15"`

	FeaturesShown []string `json:"features_shown"`
	FocusRating   string   `json:"focus_rating" validate:"oneof=FOCUSED NATURAL_FLOW SCATTERED INFOMERCIAL"`

	OverallScore int    `json:"overall_score" validate:"gte=0,lte=100"`
	ViralityTier string `json:"virality_tier" validate:"oneof=LOW MEDIUM HIGH VIRAL"`

	KeyStrengths        []string `json:"key_strengths" validate:"min=1,max=5"`
	AreasForImprovement []string `json:"areas_for_improvement" validate:"min=1,max=5"`
	Recommendations     string   `json:"recommendations"`
	CaptionSuggestions  []string `json:"caption_suggestions,omitempty"`
	AlternativeHooks    []string `json:"alternative_hooks" validate:"min=2,max=3"`

	HookAnalysis         string `json:"hook_analysis"`
	PacingAnalysis       string `json:"pacing_analysis"`
	NarrativeAnalysis    string `json:"narrative_analysis"`
	FeatureAnalysis      string `json:"feature_analysis"`
	TechnicalAnalysis    string `json:"technical_analysis"`
	TrendAnalysis        string `json:"trend_analysis"`
	ShareabilityAnalysis string `json:"shareability_analysis"`
	CaptionAnalysis      string `json:"caption_analysis,omitempty"`
}

type maxScores struct {
	hook  int
	trend int
}

func scoreLimits(hasCaption bool) maxScores {
	if hasCaption {
		return maxScores{hook: 25, trend: 10}
	}
	return maxScores{hook: 30, trend: 5}
}

// ParseReview decodes the oracle's JSON answer and enforces the bounds of the
// caption or no-caption scoring variant.
func ParseReview(data string, hasCaption bool) (*VideoReview, error) {
	var review VideoReview
	if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &review); err != nil {
		return nil, fmt.Errorf("%w: failed to decode: %v", ErrInvalidReview, err)
	}

	review.ViralityTier = strings.ToUpper(strings.TrimSpace(review.ViralityTier))
	review.FocusRating = strings.ToUpper(strings.TrimSpace(review.FocusRating))

	if !hasCaption {
		review.CaptionScore = nil
		review.CaptionAnalysis = ""
	}

	if err := validate.Struct(&review); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReview, err)
	}

	limits := scoreLimits(hasCaption)
	if review.HookScore > limits.hook {
		return nil, fmt.Errorf("%w: hook_score %d exceeds %d", ErrInvalidReview, review.HookScore, limits.hook)
	}
	if review.TrendScore > limits.trend {
		return nil, fmt.Errorf("%w: trend_score %d exceeds %d", ErrInvalidReview, review.TrendScore, limits.trend)
	}
	if hasCaption && review.CaptionScore == nil {
		return nil, fmt.Errorf("%w: caption_score missing for captioned submission", ErrInvalidReview)
	}

	return &review, nil
}

func (r *VideoReview) HasCaption() bool {
	return r.CaptionScore != nil
}

// Render formats the review as Slack mrkdwn.
func (r *VideoReview) Render() string {
	limits := scoreLimits(r.HasCaption())

	features := "None identified"
	if len(r.FeaturesShown) > 0 {
		features = strings.Join(r.FeaturesShown, ", ")
	}

	sections := []string{
		"*TARGET PERSONA FIT*\n" + r.TargetPersona,
		scoredSection("HOOK & FIRST IMPRESSION ANALYSIS", r.HookAnalysis, "Hook", r.HookScore, limits.hook),
		scoredSection("PACING & ENERGY ANALYSIS", r.PacingAnalysis, "Pacing", r.PacingScore, 15),
		scoredSection("PROBLEM-SOLUTION NARRATIVE ANALYSIS", r.NarrativeAnalysis, "Narrative", r.NarrativeScore, 20),
		fmt.Sprintf("*FEATURE DEMONSTRATION ANALYSIS*\n%s\n*Features Shown:* %s\n*Focus Rating:* %s\n*Feature Demo Score: %d/15*",
			r.FeatureAnalysis, features, r.FocusRating, r.FeatureDemoScore),
		scoredSection("TECHNICAL EXECUTION ANALYSIS", r.TechnicalAnalysis, "Technical", r.TechnicalScore, 10),
		scoredSection("TREND & PLATFORM FIT ANALYSIS", r.TrendAnalysis, "Trend", r.TrendScore, limits.trend),
		scoredSection("SHAREABILITY ANALYSIS", r.ShareabilityAnalysis, "Shareability", r.ShareabilityScore, 5),
	}

	if r.CaptionScore != nil && r.CaptionAnalysis != "" {
		sections = append(sections, scoredSection("CAPTION ANALYSIS", r.CaptionAnalysis, "Caption", *r.CaptionScore, 15))
	}

	sections = append(sections,
		format.Divider,
		fmt.Sprintf("*OVERALL SCORE: %d/100*\n\n*Predicted Virality Tier: %s*", r.OverallScore, r.ViralityTier),
		"*Key Strengths*\n"+bullets(r.KeyStrengths),
		"*Areas for Improvement*\n"+bullets(r.AreasForImprovement),
		"*Recommendations*\n"+r.Recommendations,
	)

	if len(r.CaptionSuggestions) > 0 {
		sections = append(sections, "*Caption Suggestions*\n"+bullets(r.CaptionSuggestions))
	}

	sections = append(sections, "*Best Performing Angles for This Content*\n"+bullets(r.AlternativeHooks))

	return strings.Join(sections, "\n\n")
}

func scoredSection(title, analysis, label string, score, max int) string {
	return fmt.Sprintf("*%s*\n%s\n*%s Score: %d/%d*", title, analysis, label, score, max)
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "• " + item
	}
	return strings.Join(lines, "\n")
}

// IsApproved reports whether a score clears the threshold. The boundary is
// inclusive and a missing score is never approved.
func IsApproved(score *int, threshold int) bool {
	if score == nil {
		return false
	}
	return *score >= threshold
}
