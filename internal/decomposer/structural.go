package decomposer

import (
	"regexp"
	"strings"

	"github.com/computer-project/computer/internal/directive"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

var actionVerbs = []string{
	"build", "create", "add", "implement", "fix", "write", "update",
	"remove", "delete", "refactor", "design", "test", "deploy", "document",
	"migrate", "optimize", "review", "investigate",
}

var urgencyMarkers = []string{"urgent", "asap", "immediately", "critical", "now"}
var deferralMarkers = []string{"later", "eventually", "someday", "when time permits", "low priority"}

const minFragmentLength = 8

// structuralSplit implements §4.2's fallback mode: split on sentence
// terminators, keep fragments that are either long enough or contain a
// recognized action verb, and classify priority from urgency/deferral
// lexicons. An empty or entirely-discarded prompt yields one fragment
// covering the whole (sanitized) text, priority medium.
func structuralSplit(prompt string) []fragment {
	parts := sentenceSplit.Split(prompt, -1)

	var out []fragment
	for _, p := range parts {
		text := strings.TrimSpace(p)
		if text == "" {
			continue
		}
		if len(text) < minFragmentLength && !containsAny(strings.ToLower(text), actionVerbs) {
			continue
		}
		out = append(out, fragment{text: text, priority: classifyPriority(text)})
	}

	if len(out) == 0 {
		return []fragment{{text: strings.TrimSpace(prompt), priority: directive.PriorityMedium}}
	}

	return out
}

func classifyPriority(text string) directive.Priority {
	lower := strings.ToLower(text)
	if containsAny(lower, urgencyMarkers) {
		return directive.PriorityHigh
	}
	if containsAny(lower, deferralMarkers) {
		return directive.PriorityLow
	}
	return directive.PriorityMedium
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
