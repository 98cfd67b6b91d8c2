package oracle

import (
	"google.golang.org/genai"
)

func intField(description string, max float64) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeInteger,
		Description: description,
		Minimum:     genai.Ptr(0.0),
		Maximum:     genai.Ptr(max),
	}
}

func stringField(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func enumField(description string, values ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Format: "enum", Description: description, Enum: values}
}

func listField(description string, minItems, maxItems int64) *genai.Schema {
	schema := &genai.Schema{
		Type:        genai.TypeArray,
		Description: description,
		Items:       &genai.Schema{Type: genai.TypeString},
	}
	if minItems > 0 {
		schema.MinItems = genai.Ptr(minItems)
	}
	if maxItems > 0 {
		schema.MaxItems = genai.Ptr(maxItems)
	}
	return schema
}

// reviewSchema constrains the model's JSON output to the VideoReview shape
// with the sub-score ceilings of the chosen variant.
func reviewSchema(hasCaption bool) *genai.Schema {
	limits := scoreLimits(hasCaption)

	properties := map[string]*genai.Schema{
		"target_persona":        stringField("Which persona(s) this content targets and how well it speaks to their pain points"),
		"hook_score":            intField("Hook & First Impression score", float64(limits.hook)),
		"pacing_score":          intField("Pacing & Energy score", 15),
		"narrative_score":       intField("Problem-Solution Narrative score", 20),
		"feature_demo_score":    intField("Feature Demonstration score", 15),
		"technical_score":       intField("Technical Execution score", 10),
		"trend_score":           intField("Trend & Platform Fit score", float64(limits.trend)),
		"shareability_score":    intField("Shareability & Virality Signals score", 5),
		"features_shown":        listField("Features demonstrated in the video", 0, 0),
		"focus_rating":          enumField("Focus assessment", "FOCUSED", "NATURAL_FLOW", "SCATTERED", "INFOMERCIAL"),
		"overall_score":         intField("Overall score out of 100", 100),
		"virality_tier":         enumField("Predicted virality tier", TierLow, TierMedium, TierHigh, TierViral),
		"key_strengths":         listField("Key strengths of the video", 1, 5),
		"areas_for_improvement": listField("Areas that need improvement", 1, 5),
		"recommendations":       stringField("Specific, actionable recommendations to improve the content"),
		"alternative_hooks":     listField("Alternative hooks or angles that could work better", 2, 3),
		"hook_analysis":         stringField("Analysis of the opening: scroll-stopping power and first frame quality"),
		"pacing_analysis":       stringField("Analysis of pacing, cuts, energy level and attention retention"),
		"narrative_analysis":    stringField("Analysis of the transformation story and authenticity"),
		"feature_analysis":      stringField("Analysis of feature demonstration and focus"),
		"technical_analysis":    stringField("Analysis of video and audio quality, text overlays and readability"),
		"trend_analysis":        stringField("Analysis of trending sounds or formats and platform fit"),
		"shareability_analysis": stringField("Analysis of tag-worthiness, rewatchability and desire creation"),
	}

	ordering := []string{
		"target_persona",
		"hook_analysis", "hook_score",
		"pacing_analysis", "pacing_score",
		"narrative_analysis", "narrative_score",
		"feature_analysis", "features_shown", "focus_rating", "feature_demo_score",
		"technical_analysis", "technical_score",
		"trend_analysis", "trend_score",
		"shareability_analysis", "shareability_score",
	}

	if hasCaption {
		properties["caption_score"] = intField("Caption Analysis score", 15)
		properties["caption_analysis"] = stringField("Analysis of the caption: hook, hashtags and video-caption synergy")
		properties["caption_suggestions"] = listField("Caption ideas that would work well with this video", 0, 3)
		ordering = append(ordering, "caption_analysis", "caption_score")
	}

	ordering = append(ordering,
		"overall_score", "virality_tier",
		"key_strengths", "areas_for_improvement", "recommendations")
	if hasCaption {
		ordering = append(ordering, "caption_suggestions")
	}
	ordering = append(ordering, "alternative_hooks")

	required := make([]string, 0, len(ordering))
	for _, name := range ordering {
		if name == "caption_suggestions" {
			continue
		}
		required = append(required, name)
	}

	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       properties,
		Required:         required,
		PropertyOrdering: ordering,
	}
}
