package collab

import (
	"fmt"
	"regexp"
)

// DefaultRenderer implements Renderer with a small built-in template set
// covering the names the core actually renders (directive-prompt,
// directive-out, claude-todo), grounded on
// original_source/lib/template_manager.py's equivalent defaults. Domain
// templates selected by content heuristics are out of scope (§1).
type DefaultRenderer struct {
	templates map[string]string
}

// NewDefaultRenderer returns a renderer seeded with the three named core
// templates; the directive store renders directive-out.
func NewDefaultRenderer() *DefaultRenderer {
	return &DefaultRenderer{
		templates: map[string]string{
			"directive-prompt": "{{PROMPT}}",
			"directive-out":    "Status: {{STATUS}}\nTokens: {{TOKENS_IN}} in / {{TOKENS_OUT}} out\nCost: {{COST}}\n\n{{RESULT}}",
			"claude-todo":      "- [{{STATUS}}] {{CONTENT}}",
		},
	}
}

var placeholder = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)

// Render substitutes {{NAME}} placeholders with vars[NAME], leaving
// unmatched placeholders as N/A.
func (r *DefaultRenderer) Render(templateName string, vars map[string]string) (string, error) {
	tmpl, ok := r.templates[templateName]
	if !ok {
		return "", fmt.Errorf("collab: unknown template %q", templateName)
	}

	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[2 : len(match)-2]
		if v, ok := vars[name]; ok && v != "" {
			return v
		}
		return "N/A"
	}), nil
}
