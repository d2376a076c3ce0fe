package rod

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"chat-bridge/internal/domain/entity"

	"gopkg.in/yaml.v3"
)

const xpathPrefix = "xpath="

// Selectors maps each named target to a CSS selector or, with an "xpath="
// prefix or a leading "/" or "(", an XPath expression.
type Selectors map[entity.Target]string

// DefaultSelectors matches the current markup of the chat site.
func DefaultSelectors() Selectors {
	return Selectors{
		entity.TargetPromptInput: `[role="textbox"][aria-label="Enter a prompt here"]`,
		entity.TargetQueryBubble: `//span[contains(@class, "user-query-bubble-with-background")]`,
		// Only the latest bubble counts, so an older finished reply never
		// satisfies the wait.
		entity.TargetCompletionSignal: `(//span[contains(@class, "user-query-bubble-with-background")])[last()]` +
			`/following::div[@data-test-lottie-animation-status="completed"][1]`,
		entity.TargetResponseContent: `(//div[contains(@class, "text-input-field")])[1]/preceding::message-content[1]`,
		entity.TargetUploadMenu:      `button[aria-label="Open upload file menu"].upload-card-button`,
		entity.TargetUploadFilesItem: `//div[contains(@class, "menu-text") and contains(normalize-space(.), "Upload files")]`,
		entity.TargetFileInput:       `input[type="file"]`,
		entity.TargetUploadReady:     `uploader-file-preview img:not([src=""])`,
		entity.TargetPopupDismiss:    `//span[text()="No thanks"]`,
	}
}

// LoadSelectors reads a YAML map of target name to selector and lays it over
// the defaults. Unknown target names are rejected.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selectors file: %w", err)
	}

	var overrides map[string]string
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&overrides); err != nil {
		return nil, fmt.Errorf("parse selectors file %s: %w", path, err)
	}

	known := make(map[entity.Target]bool)
	for _, t := range entity.AllTargets() {
		known[t] = true
	}
	for name, value := range overrides {
		target := entity.Target(name)
		if !known[target] {
			return nil, fmt.Errorf("selectors file %s: unknown target %q", path, name)
		}
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("selectors file %s: empty selector for %q", path, name)
		}
		sel[target] = value
	}
	return sel, nil
}

// resolve returns the selector for t and whether it is XPath.
func (s Selectors) resolve(t entity.Target) (string, bool, error) {
	raw, ok := s[t]
	if !ok || raw == "" {
		return "", false, fmt.Errorf("no selector for target %q", t)
	}
	if strings.HasPrefix(raw, xpathPrefix) {
		return strings.TrimPrefix(raw, xpathPrefix), true, nil
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "(") {
		return raw, true, nil
	}
	return raw, false, nil
}
