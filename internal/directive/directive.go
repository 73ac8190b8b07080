// Package directive defines the on-disk directive data model: the
// frontmatter header, the markdown body sections, and the codec between
// the two. Everything downstream (store, decomposer, engine, bridge)
// operates on the types defined here.
package directive

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the value of a directive header's status field, the
// pending/completed/failed vocabulary from §6, not the lifecycle
// folder name (see store.FolderNew etc. for those).
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Priority is the urgency classification assigned by the decomposer.
// "medium" is the on-disk/wire literal per §4.1's sort vocabulary;
// directives authored outside this codebase (or hand-edited) are
// expected to use it directly.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Header is the YAML frontmatter block of a directive file.
type Header struct {
	ID            string    `yaml:"id"`
	Slug          string    `yaml:"slug"`
	Platform      string    `yaml:"platform"`
	Model         string    `yaml:"model"`
	Priority      Priority  `yaml:"priority"`
	Status        string    `yaml:"status"`
	CreatedAt     time.Time `yaml:"created_at"`
	Prerequisites []string  `yaml:"prerequisites,omitempty"`
	Phase         string    `yaml:"phase,omitempty"`
	SessionID     string    `yaml:"session_id,omitempty"`
	ClaudeTodoID  string    `yaml:"claude_todo_id,omitempty"`
	TodoIndex     int       `yaml:"todo_index,omitempty"`
	TotalTodos    int       `yaml:"total_todos,omitempty"`
}

// Directive is a single unit of work: a header plus the free-form body
// sections that make up its markdown file.
type Directive struct {
	Header       Header
	Prompt       string
	Prereqs      []string // rendered wiki-link lines from "## Prerequisites"
	Outputs      string
	Metadata     string
	Path         string // absolute path to the file on disk, empty until written/loaded
}

var ErrMissingFrontmatter = errors.New("directive: missing frontmatter block")

const frontmatterDelim = "---"

// Encode renders a Directive as the markdown+YAML-frontmatter document
// that is written to disk.
func Encode(d Directive) (string, error) {
	header, err := yaml.Marshal(d.Header)
	if err != nil {
		return "", fmt.Errorf("directive: marshal header: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelim)
	b.WriteString("\n")
	b.Write(header)
	b.WriteString(frontmatterDelim)
	b.WriteString("\n\n")

	b.WriteString("## Prompt\n\n")
	b.WriteString(strings.TrimSpace(d.Prompt))
	b.WriteString("\n\n")

	b.WriteString("## Prerequisites\n\n")
	if len(d.Prereqs) == 0 {
		b.WriteString("N/A\n\n")
	} else {
		for _, p := range d.Prereqs {
			fmt.Fprintf(&b, "- [[%s]]\n", p)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Outputs\n\n")
	if strings.TrimSpace(d.Outputs) == "" {
		b.WriteString("N/A\n\n")
	} else {
		b.WriteString(strings.TrimSpace(d.Outputs))
		b.WriteString("\n\n")
	}

	b.WriteString("## Metadata\n\n")
	if strings.TrimSpace(d.Metadata) == "" {
		b.WriteString("N/A\n")
	} else {
		b.WriteString(strings.TrimSpace(d.Metadata))
		b.WriteString("\n")
	}

	return b.String(), nil
}

// Decode parses a directive markdown document back into its structured
// form. It is deliberately tolerant of missing sections (they render as
// "N/A" and decode to an empty string/slice), since a directive may have
// been edited by hand between lifecycle transitions.
func Decode(raw string) (Directive, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	if !strings.HasPrefix(strings.TrimLeft(raw, "\n"), frontmatterDelim) {
		return Directive{}, ErrMissingFrontmatter
	}

	trimmed := strings.TrimLeft(raw, "\n")
	rest := trimmed[len(frontmatterDelim):]
	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end < 0 {
		return Directive{}, ErrMissingFrontmatter
	}
	headerBlock := rest[:end]
	body := rest[end+len(frontmatterDelim)+1:]

	var header Header
	if err := yaml.Unmarshal([]byte(headerBlock), &header); err != nil {
		return Directive{}, fmt.Errorf("directive: parse header: %w", err)
	}

	sections := splitSections(body)

	d := Directive{
		Header:   header,
		Prompt:   sections["Prompt"],
		Outputs:  sections["Outputs"],
		Metadata: sections["Metadata"],
	}
	d.Prereqs = parsePrereqLines(sections["Prerequisites"])
	return d, nil
}

// splitSections breaks a directive body into its "## Name" sections,
// trimming the literal "N/A" placeholder down to an empty string.
func splitSections(body string) map[string]string {
	out := make(map[string]string)
	lines := strings.Split(body, "\n")
	var current string
	var buf strings.Builder

	flush := func() {
		if current == "" {
			return
		}
		text := strings.TrimSpace(buf.String())
		if text == "N/A" {
			text = ""
		}
		out[current] = text
		buf.Reset()
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()
	return out
}

// parsePrereqLines pulls slugs out of "- [[slug]]" wiki-link lines.
func parsePrereqLines(section string) []string {
	if section == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[[") || !strings.HasSuffix(line, "]]") {
			continue
		}
		slug := strings.TrimSuffix(strings.TrimPrefix(line, "[["), "]]")
		if slug != "" {
			out = append(out, slug)
		}
	}
	return out
}
