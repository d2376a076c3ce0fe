package diagnostics

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

type CleanConfig struct {
	TagsToRemove  []string
	AttrsToRemove []string
	MaxOutputSize int
}

// DefaultCleanConfig keeps structure and the attributes selectors match on
// (class, id, data-*, aria-*) and drops everything else that bloats a dump.
var DefaultCleanConfig = CleanConfig{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head", "title",
	},
	AttrsToRemove: []string{
		"style", "srcset", "sizes", "loading", "decoding", "fetchpriority", "tabindex",
	},
	MaxOutputSize: 512_000,
}

// CleanHTML strips a page dump down to its body. Unparseable input is
// returned unchanged.
func CleanHTML(rawHTML string, cfg *CleanConfig) string {
	if cfg == nil {
		cfg = &DefaultCleanConfig
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return truncateHTML(rawHTML, cfg.MaxOutputSize)
	}

	body := findBodyNode(doc)
	if body == nil {
		return truncateHTML(rawHTML, cfg.MaxOutputSize)
	}

	cleanNode(body, cfg)
	return truncateHTML(renderNode(body), cfg.MaxOutputSize)
}

func findBodyNode(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBodyNode(c); b != nil {
			return b
		}
	}
	return nil
}

func cleanNode(n *html.Node, cfg *CleanConfig) {
	if n.Type == html.CommentNode {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	if isOneOf(n.Data, cfg.TagsToRemove...) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}

	n.Attr = filterAttributes(n.Attr, cfg)

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		cleanNode(c, cfg)
		c = next
	}
}

func filterAttributes(attrs []html.Attribute, cfg *CleanConfig) []html.Attribute {
	var kept []html.Attribute
	for _, attr := range attrs {
		if isOneOf(attr.Key, cfg.AttrsToRemove...) || strings.HasPrefix(attr.Key, "on") {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

func truncateHTML(htmlStr string, maxSize int) string {
	if maxSize > 0 && len(htmlStr) > maxSize {
		cut := maxSize
		for cut > 0 && !utf8.RuneStart(htmlStr[cut]) {
			cut--
		}
		return htmlStr[:cut] + "\n<!-- truncated -->"
	}
	return htmlStr
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
