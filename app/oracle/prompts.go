package oracle

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/ugc-review/app/links"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

//go:embed guidelines.yml
var defaultGuidelines []byte

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type PlatformGuideline struct {
	Length   string   `yaml:"length"`
	Tone     []string `yaml:"tone"`
	Style    string   `yaml:"style"`
	Examples []string `yaml:"examples"`
}

func (g PlatformGuideline) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Length:** %s\n", g.Length)
	if len(g.Tone) > 0 {
		b.WriteString("\n**Tone by Persona:**\n")
		for _, tone := range g.Tone {
			fmt.Fprintf(&b, "- %s\n", tone)
		}
	}
	if g.Style != "" {
		fmt.Fprintf(&b, "\n**Style:** %s\n", g.Style)
	}
	if len(g.Examples) > 0 {
		b.WriteString("\n**Good examples:**\n")
		for _, example := range g.Examples {
			fmt.Fprintf(&b, "- %q\n", example)
		}
	}
	return b.String()
}

// Guidelines is the per-platform guidance catalog used by comment prompts.
type Guidelines struct {
	Default   string                       `yaml:"default"`
	Platforms map[string]PlatformGuideline `yaml:"platforms"`
}

// LoadGuidelines parses the embedded catalog and, when path is set, overlays
// the platforms defined in that file.
func LoadGuidelines(path string) (*Guidelines, error) {
	guidelines, err := parseGuidelines(defaultGuidelines)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded guidelines: %w", err)
	}

	if path == "" {
		return guidelines, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	override, err := parseGuidelines(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	if override.Default != "" {
		guidelines.Default = override.Default
	}
	for name, platform := range override.Platforms {
		guidelines.Platforms[name] = platform
	}

	if _, ok := guidelines.Platforms[guidelines.Default]; !ok {
		return nil, fmt.Errorf("default platform '%s' has no guidelines", guidelines.Default)
	}

	slog.Debug("Platform guidelines loaded", "file", path, "platforms", len(guidelines.Platforms))

	return guidelines, nil
}

func parseGuidelines(data []byte) (*Guidelines, error) {
	var guidelines Guidelines
	if err := yaml.Unmarshal(data, &guidelines); err != nil {
		return nil, err
	}

	normalized := make(map[string]PlatformGuideline, len(guidelines.Platforms))
	for name, platform := range guidelines.Platforms {
		normalized[strings.ToLower(name)] = platform
	}
	guidelines.Platforms = normalized
	guidelines.Default = strings.ToLower(guidelines.Default)

	return &guidelines, nil
}

// For returns the guideline for platform, falling back to the default one.
func (g *Guidelines) For(platform links.Platform) PlatformGuideline {
	if guideline, ok := g.Platforms[strings.ToLower(string(platform))]; ok {
		return guideline
	}
	return g.Platforms[g.Default]
}

// ReviewPrompt returns the scoring prompt. A blank caption selects the
// no-caption variant.
func ReviewPrompt(caption string) (string, error) {
	caption = strings.TrimSpace(caption)

	name := "review.tmpl"
	if caption != "" {
		name = "review_caption.tmpl"
	}

	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, struct{ Caption string }{caption}); err != nil {
		return "", fmt.Errorf("failed to render review prompt: %w", err)
	}
	return buf.String(), nil
}

// CommentPrompt returns the engagement-comment prompt for one platform.
func CommentPrompt(req GenerateRequest, guidelines *Guidelines) (string, error) {
	data := struct {
		Context    string
		Caption    string
		PostURL    string
		Platform   string
		Guidelines string
	}{
		Context:    req.Context,
		Caption:    strings.TrimSpace(req.Caption),
		PostURL:    req.PostURL,
		Platform:   req.Platform.Label(),
		Guidelines: guidelines.For(req.Platform).String(),
	}

	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, "comment.tmpl", data); err != nil {
		return "", fmt.Errorf("failed to render comment prompt: %w", err)
	}
	return buf.String(), nil
}
