package links

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Platform string

const (
	Instagram Platform = "instagram"
	TikTok    Platform = "tiktok"
)

// Order in which platforms are extracted and rendered.
var platforms = []Platform{Instagram, TikTok}

var patterns = map[Platform]*regexp.Regexp{
	// instagram.com/p/CODE, instagram.com/reel/CODE, instagram.com/USERNAME/reel/CODE
	Instagram: regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/(?:[\w.-]+/)?(?:p|reels?|tv)/[\w-]+/?`),
	// tiktok.com/@USERNAME/video/ID, tiktok.com/t/CODE, vm.tiktok.com/CODE, vt.tiktok.com/CODE
	TikTok: regexp.MustCompile(`(?i)https?://(?:(?:www\.|m\.)?tiktok\.com/(?:@[\w.-]+/video/\d+|t/\w+/?)|(?:vm|vt)\.tiktok\.com/\w+/?)`),
}

var titleCaser = cases.Title(language.English)

func Platforms() []Platform {
	return append([]Platform(nil), platforms...)
}

func (p Platform) DisplayName() string {
	return titleCaser.String(string(p))
}

func (p Platform) Label() string {
	return strings.ToUpper(string(p))
}

type Link struct {
	Platform Platform
	URL      string
}

type Links struct {
	urls map[Platform]string
}

// Extract finds the first link for every supported platform in text.
// Platforms are matched independently, so one message can carry several.
func Extract(text string) Links {
	found := Links{urls: make(map[Platform]string, len(platforms))}
	for _, platform := range platforms {
		if match := patterns[platform].FindString(text); match != "" {
			found.urls[platform] = match
		}
	}
	return found
}

func (l Links) Get(platform Platform) (string, bool) {
	url, ok := l.urls[platform]
	return url, ok
}

func (l Links) Empty() bool {
	return len(l.urls) == 0
}

// Present returns the extracted links in platform order.
func (l Links) Present() []Link {
	present := make([]Link, 0, len(l.urls))
	for _, platform := range platforms {
		if url, ok := l.urls[platform]; ok {
			present = append(present, Link{Platform: platform, URL: url})
		}
	}
	return present
}
