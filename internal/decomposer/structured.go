package decomposer

import (
	"regexp"
	"strings"

	"github.com/computer-project/computer/internal/directive"
)

// phaseSignal names one of the canonical structured-mode phases along
// with the lexicon of domain terms that trigger it, and its priority.
type phaseSignal struct {
	name     string
	terms    []string
	priority directive.Priority
	text     string
}

// canonical phase order per §4.2: Analyze -> Data -> API -> UI -> Test -> Deploy.
// Priorities per the fixed table: architecture/data/API -> high,
// UI/test -> medium, deploy -> low.
func phaseTable() []phaseSignal {
	return []phaseSignal{
		{name: "analyze", terms: []string{"analyze", "architecture", "design"}, priority: directive.PriorityHigh, text: "Analyze requirements and design the overall approach."},
		{name: "data", terms: []string{"database", "postgres", "mysql", "schema", "data layer", "data model"}, priority: directive.PriorityHigh, text: "Design and implement the data layer."},
		{name: "api", terms: []string{"api", "endpoint", "rest", "graphql", "service"}, priority: directive.PriorityHigh, text: "Build the API surface."},
		{name: "ui", terms: []string{"ui", "frontend", "interface", "page", "screen"}, priority: directive.PriorityMedium, text: "Build the user interface."},
		{name: "test", terms: []string{"test", "tests", "testing"}, priority: directive.PriorityMedium, text: "Write tests covering the new functionality."},
		{name: "deploy", terms: []string{"deploy", "deployment", "release", "ship"}, priority: directive.PriorityLow, text: "Deploy the completed work."},
	}
}

// detectPhases inspects prompt for known domain signals and emits one
// fragment per matched phase in canonical order. Two deliberate quirks,
// preserved from the original project per §9 ("not a bug to reproduce"):
// Analyze and Test are added automatically whenever any of Data/API/UI
// is detected, even with no matching term of their own — the "thinking"
// and "verification" phases are implied by any concrete work phase.
// Deploy is added automatically only when UI is also present, i.e. once
// the prompt describes a complete, shippable stack rather than a single
// layer.
func detectPhases(prompt string) []fragment {
	lower := strings.ToLower(prompt)
	table := phaseTable()

	// Terms match only at the start of a word, so "ui" does not fire on
	// "build" and "api" does not fire on "rapid".
	matched := make(map[string]bool)
	for _, p := range table {
		for _, term := range p.terms {
			if regexp.MustCompile(`\b` + regexp.QuoteMeta(term)).MatchString(lower) {
				matched[p.name] = true
				break
			}
		}
	}

	coreWork := matched["data"] || matched["api"] || matched["ui"]
	if !coreWork && !matched["analyze"] {
		return nil
	}

	if coreWork {
		matched["analyze"] = true
		matched["test"] = true
	}
	if matched["ui"] {
		matched["deploy"] = true
	}

	var out []fragment
	for _, p := range table {
		if matched[p.name] {
			out = append(out, fragment{text: p.text, priority: p.priority})
		}
	}
	return out
}
