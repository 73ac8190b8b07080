// Package decomposer implements C4: turning a free-form prompt into an
// ordered chain of directive records. Grounded on
// original_source/agents/directive_agent.py's
// _enhanced_heuristic_analysis/_heuristic_analyze_prompt (structured vs.
// structural mode) and on the teacher's internal/campaign/decomposer.go
// for the shape of a Decompose(ctx, Request) (*Result, error) entry point
// with an oracle-then-fallback pattern.
package decomposer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/computer-project/computer/internal/collab"
	"github.com/computer-project/computer/internal/directive"
	"github.com/computer-project/computer/internal/logging"
)

// Oracle is the optional external LLM consulted for a better split. Any
// error it returns is swallowed by Decompose, which falls back to
// structural mode; no state is mutated before the fallback (§4.2).
type Oracle interface {
	ProposeSplit(ctx context.Context, prompt string) ([]string, error)
}

// Decomposer turns prompts into directive chains.
type Decomposer struct {
	sanitizer collab.Sanitizer
	log       *logging.Logger
	oracle    Oracle // nil means heuristics-only
}

// New constructs a Decomposer. oracle may be nil.
func New(sanitizer collab.Sanitizer, log *logging.Logger, oracle Oracle) *Decomposer {
	return &Decomposer{sanitizer: sanitizer, log: log, oracle: oracle}
}

// Request carries the inputs to one decomposition.
type Request struct {
	Prompt    string
	Platform  string
	Model     string
	SessionID string
}

// Decompose produces the ordered directive chain for one prompt. Every
// record after the first carries the immediately preceding record's slug
// as its sole prerequisite (§4.2, §8's testable property on chains).
func (d *Decomposer) Decompose(ctx context.Context, req Request) ([]directive.Directive, error) {
	sanitized, err := d.sanitizePrompt(req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("decomposer: sanitize prompt: %w", err)
	}

	var fragments []fragment
	if phases := detectPhases(sanitized); len(phases) > 0 {
		fragments = phases
	} else if d.oracle != nil {
		if proposed, err := d.oracle.ProposeSplit(ctx, sanitized); err == nil && len(proposed) > 0 {
			fragments = make([]fragment, len(proposed))
			for i, text := range proposed {
				fragments[i] = fragment{text: text, priority: directive.PriorityMedium}
			}
		}
	}
	if len(fragments) == 0 {
		fragments = structuralSplit(sanitized)
	}

	now := time.Now()
	records := make([]directive.Directive, 0, len(fragments))
	var prevSlug string
	for _, f := range fragments {
		id := uuid.NewString()
		slug := d.slugify(f.text, id)

		var prereqs []string
		if prevSlug != "" {
			prereqs = []string{prevSlug}
		}

		records = append(records, directive.Directive{
			Header: directive.Header{
				ID:            id,
				Slug:          slug,
				Platform:      req.Platform,
				Model:         req.Model,
				Priority:      f.priority,
				Status:        string(directive.StatusPending),
				CreatedAt:     now,
				Prerequisites: prereqs,
				SessionID:     req.SessionID,
			},
			Prompt: f.text,
		})
		prevSlug = slug
	}

	return records, nil
}

func (d *Decomposer) sanitizePrompt(prompt string) (string, error) {
	if d.sanitizer == nil {
		return prompt, nil
	}
	return d.sanitizer.SanitizePrompt(prompt)
}

var slugDisallowed = regexp.MustCompile(`[^a-z0-9]+`)

func (d *Decomposer) slugify(text, id string) string {
	lower := strings.ToLower(text)
	slug := slugDisallowed.ReplaceAllString(lower, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}
	if slug == "" {
		if d.sanitizer != nil {
			return d.sanitizer.GenerateSafeID(text, "task")
		}
		return id
	}
	return slug
}

type fragment struct {
	text     string
	priority directive.Priority
}
