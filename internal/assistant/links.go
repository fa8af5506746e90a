package assistant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/askdocs/askdocs/internal/knowledge"
)

// Source is one deduplicated citation derived from the matched sections.
type Source struct {
	Heading string `json:"heading"`
	URL     string `json:"url"`
}

// markdownLink matches [label](target). Targets with whitespace are left
// alone; they are malformed markdown, not links.
var markdownLink = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]*)\)`)

// rewriteLinks rewrites relative or scheme-less documentation links in
// markdown text to absolute URLs under baseURL. Empty or unusable targets
// lose the link but keep the label.
func rewriteLinks(text, baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	host := strings.TrimPrefix(strings.TrimPrefix(base, "https://"), "http://")

	return markdownLink.ReplaceAllStringFunc(text, func(match string) string {
		groups := markdownLink.FindStringSubmatch(match)
		label, target := groups[1], groups[2]

		switch {
		case target == "" || target == "/":
			return label
		case strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://"):
			return match
		case strings.HasPrefix(target, "#"):
			return match
		case strings.HasPrefix(target, "/"):
			return fmt.Sprintf("[%s](%s%s)", label, base, target)
		case strings.HasPrefix(target, host+"/"):
			// Site link written without a scheme.
			return fmt.Sprintf("[%s](https://%s)", label, target)
		default:
			// mailto:, javascript:, bare words — drop the link.
			return label
		}
	})
}

// absoluteURL resolves a section URL against baseURL.
func absoluteURL(u, baseURL string) string {
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return base + u
}

// sourcesFromSections derives the deduplicated source list from matched
// sections, preserving rank order. Sections without a URL are skipped.
func sourcesFromSections(sections []knowledge.PageSection, baseURL string) []Source {
	seen := make(map[string]struct{}, len(sections))
	sources := make([]Source, 0, len(sections))

	for _, section := range sections {
		u := absoluteURL(section.URL, baseURL)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}

		heading := section.Heading
		if heading == "" {
			heading = u
		}
		sources = append(sources, Source{Heading: heading, URL: u})
	}

	return sources
}

// renderSourcesMarkdown renders sources as a markdown bullet list.
func renderSourcesMarkdown(sources []Source) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range sources {
		fmt.Fprintf(&b, "- [%s](%s)\n", s.Heading, s.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}
