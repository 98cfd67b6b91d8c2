package format

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/ugc-review/app/links"
)

// CommentSection is one platform's block in the approved message. Err is set
// when comment generation failed for that platform.
type CommentSection struct {
	Platform links.Platform
	URL      string
	Comments string
	Err      error
}

// ApprovedContent carries everything rendered into the approved channel post.
type ApprovedContent struct {
	PosterID     string
	Score        *int
	ViralityTier string
	Caption      string
	Sections     []CommentSection
}

func Processing(hasCaption bool) string {
	if hasCaption {
		return "Analyzing your video and caption... This may take a moment."
	}
	return "Analyzing your video... This may take a moment."
}

func ReviewComplete(review string) string {
	return "*Video Analysis Complete*\n\n" + review
}

func ScoringFailed(err error) string {
	return fmt.Sprintf("Sorry, there was an error analyzing your video: %v", err)
}

func ApprovalPrompt(score int, tier string) string {
	return fmt.Sprintf("Congratulations! Your video scored *%d/100* (Virality Tier: *%s*) and has been approved for promotion.\n\n"+
		"Please reply to this thread with your Instagram and/or TikTok post links so we can generate engagement comments for your content.",
		score, orNA(tier))
}

func Generating(platform links.Platform) string {
	return fmt.Sprintf("Generating engagement comments for %s...", platform.DisplayName())
}

func PublishFailed(err error) string {
	return fmt.Sprintf("Error posting to approved channel: %v", err)
}

func Published() string {
	return "Your content has been posted to the approved content channel with engagement comments. Great work!"
}

// Render formats a section; generated comments are converted from markdown.
func (s CommentSection) Render() string {
	if s.Err != nil {
		return fmt.Sprintf("*%s*\nError generating comments: %v", s.Platform.Label(), s.Err)
	}
	return fmt.Sprintf("*%s Comments*\n%s\n\n%s", s.Platform.Label(), s.URL, ToMrkdwn(s.Comments))
}

// ApprovedMessage builds the consolidated post for the approved channel.
// Sections are rendered in the order given.
func ApprovedMessage(c ApprovedContent) string {
	var b strings.Builder

	score := "N/A"
	if c.Score != nil {
		score = fmt.Sprintf("%d", *c.Score)
	}

	b.WriteString("*New Approved UGC Content*\n\n")
	fmt.Fprintf(&b, "Creator: <@%s>\n", c.PosterID)
	fmt.Fprintf(&b, "Score: *%s/100*\n", score)
	fmt.Fprintf(&b, "Virality Tier: *%s*\n", orNA(c.ViralityTier))

	if c.Caption != "" {
		fmt.Fprintf(&b, "\n*Caption:*\n```%s```\n", c.Caption)
	}

	b.WriteString("\n" + strings.Repeat("—", 30) + "\n\n")

	sections := make([]string, 0, len(c.Sections))
	for _, s := range c.Sections {
		sections = append(sections, s.Render())
	}
	b.WriteString(strings.Join(sections, "\n\n"))

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
